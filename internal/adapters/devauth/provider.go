package devauth

// Package devauth provides an in-memory IdentityProvider for local development and tests.
// It keeps bcrypt-hashed accounts and reports failures with the same text a hosted
// provider would, so the shared classifier handles them.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/civicdesk/civicdesk/internal/adapters/providererr"
	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	"github.com/civicdesk/civicdesk/internal/ports"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const defaultMinPasswordLength = 6

// Account seeds a development user.
type Account struct {
	Email    string
	Password string
	Name     string
	Role     string // stored in metadata verbatim; may be empty or unknown on purpose
	// Unconfirmed accounts fail sign-in with the provider's "email not confirmed" text.
	Unconfirmed bool
}

// Config controls the dev auth provider behavior.
type Config struct {
	Accounts []Account
	// RequireConfirmation makes SignUp return no token until Confirm is called.
	RequireConfirmation bool
	MinPasswordLength   int           // default 6 when zero
	TokenTTL            time.Duration // default 8h when zero
	// BcryptCost defaults to bcrypt.DefaultCost; tests use bcrypt.MinCost.
	BcryptCost int
	Now        func() time.Time
}

type account struct {
	id        string
	email     string
	hash      []byte
	metadata  map[string]any
	confirmed bool
}

// Provider implements ports.IdentityProvider for local development.
type Provider struct {
	mu        sync.Mutex
	byEmail   map[string]*account
	tokens    map[string]string // access token -> account id
	byID      map[string]*account
	cfg       Config
	minPwdLen int
	ttl       time.Duration
}

var _ ports.IdentityProvider = (*Provider)(nil)

// NewProvider constructs a dev auth provider and seeds cfg.Accounts.
func NewProvider(cfg Config) (*Provider, error) {
	p := &Provider{
		byEmail:   make(map[string]*account),
		byID:      make(map[string]*account),
		tokens:    make(map[string]string),
		cfg:       cfg,
		minPwdLen: cfg.MinPasswordLength,
		ttl:       cfg.TokenTTL,
	}
	if p.minPwdLen <= 0 {
		p.minPwdLen = defaultMinPasswordLength
	}
	if p.ttl <= 0 {
		p.ttl = 8 * time.Hour
	}
	if p.cfg.BcryptCost == 0 {
		p.cfg.BcryptCost = bcrypt.DefaultCost
	}
	if p.cfg.Now == nil {
		p.cfg.Now = time.Now
	}
	for _, a := range cfg.Accounts {
		if a.Email == "" || a.Password == "" {
			return nil, errors.New("dev auth: seeded accounts need an email and a password")
		}
		md := map[string]any{}
		if a.Name != "" {
			md["name"] = a.Name
		}
		if a.Role != "" {
			md["role"] = a.Role
		}
		if _, err := p.create(a.Email, a.Password, md, !a.Unconfirmed); err != nil {
			return nil, fmt.Errorf("dev auth: seed %s: %w", a.Email, err)
		}
	}
	return p, nil
}

// SignUp registers a new account. Metadata is stored as given.
func (p *Provider) SignUp(_ context.Context, in ports.SignUpInput) (ports.SignUpResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return ports.SignUpResult{}, providererr.Classify(http.StatusBadRequest, "Unable to validate email address: invalid format")
	}
	if len(in.Password) < p.minPwdLen {
		return ports.SignUpResult{}, providererr.Classify(http.StatusUnprocessableEntity,
			fmt.Sprintf("Password should be at least %d characters.", p.minPwdLen))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.byEmail[email]; exists {
		return ports.SignUpResult{}, providererr.Classify(http.StatusUnprocessableEntity, "User already registered")
	}
	acct, err := p.create(email, in.Password, cloneMetadata(in.Metadata), !p.cfg.RequireConfirmation)
	if err != nil {
		return ports.SignUpResult{}, providererr.ClassifyError(err)
	}
	if !acct.confirmed {
		return ports.SignUpResult{
			Identity:             domainauth.Identity{ID: acct.id, Email: acct.email, Metadata: cloneMetadata(acct.metadata)},
			ConfirmationRequired: true,
		}, nil
	}
	id, err := p.issue(acct)
	if err != nil {
		return ports.SignUpResult{}, providererr.ClassifyError(err)
	}
	return ports.SignUpResult{Identity: id}, nil
}

// SignInWithPassword checks the password against the stored bcrypt hash.
func (p *Provider) SignInWithPassword(_ context.Context, email, password string) (domainauth.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.byEmail[normalizeEmail(email)]
	if !ok || bcrypt.CompareHashAndPassword(acct.hash, []byte(password)) != nil {
		return domainauth.Identity{}, providererr.Classify(http.StatusBadRequest, "Invalid login credentials")
	}
	if !acct.confirmed {
		return domainauth.Identity{}, providererr.Classify(http.StatusBadRequest, "Email not confirmed")
	}
	id, err := p.issue(acct)
	if err != nil {
		return domainauth.Identity{}, providererr.ClassifyError(err)
	}
	return id, nil
}

// GetUser resolves a token issued by this provider.
func (p *Provider) GetUser(_ context.Context, accessToken string) (domainauth.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.byID[p.tokens[accessToken]]
	if !ok {
		return domainauth.Identity{}, providererr.Classify(http.StatusUnauthorized, "invalid JWT: unable to parse or verify signature")
	}
	return domainauth.Identity{
		ID:          acct.id,
		Email:       acct.email,
		AccessToken: accessToken,
		Metadata:    cloneMetadata(acct.metadata),
	}, nil
}

// Confirm marks an account's email as confirmed.
func (p *Provider) Confirm(email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct, ok := p.byEmail[normalizeEmail(email)]
	if !ok {
		return fmt.Errorf("dev auth: no account for %q", email)
	}
	acct.confirmed = true
	return nil
}

// create must be called with mu held, or during construction.
func (p *Provider) create(email, password string, md map[string]any, confirmed bool) (*account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	acct := &account{
		id:        uuid.NewString(),
		email:     normalizeEmail(email),
		hash:      hash,
		metadata:  md,
		confirmed: confirmed,
	}
	p.byEmail[acct.email] = acct
	p.byID[acct.id] = acct
	return acct, nil
}

func (p *Provider) issue(acct *account) (domainauth.Identity, error) {
	tok, err := randomString(32)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("generate token: %w", err)
	}
	p.tokens[tok] = acct.id
	return domainauth.Identity{
		ID:          acct.id,
		Email:       acct.email,
		AccessToken: tok,
		Metadata:    cloneMetadata(acct.metadata),
		ExpiresAt:   p.cfg.Now().Add(p.ttl),
	}, nil
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func cloneMetadata(md map[string]any) map[string]any {
	out := make(map[string]any, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	// Compute number of random bytes needed to produce at least n base64 URL chars
	b := make([]byte, (n*3+3)/4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
