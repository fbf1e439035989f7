package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	apperrors "github.com/civicdesk/civicdesk/internal/errors"
	"github.com/civicdesk/civicdesk/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*MockIdentityProvider)(nil)
	_ ports.SessionStore     = (*MemorySessionStore)(nil)
	_ ports.ProfileDirectory = (*MemoryProfileStore)(nil)
)

// MockIdentityProvider returns DefaultIdentity unless a func field overrides the call.
type MockIdentityProvider struct {
	SignUpFunc             func(ctx context.Context, in ports.SignUpInput) (ports.SignUpResult, error)
	SignInWithPasswordFunc func(ctx context.Context, email, password string) (domainauth.Identity, error)
	GetUserFunc            func(ctx context.Context, accessToken string) (domainauth.Identity, error)

	DefaultIdentity domainauth.Identity

	mu         sync.Mutex
	signIns    int
	lastSignUp ports.SignUpInput
}

// NewMockIdentityProvider creates a MockIdentityProvider with a deterministic identity.
func NewMockIdentityProvider() *MockIdentityProvider {
	return &MockIdentityProvider{
		DefaultIdentity: domainauth.Identity{
			ID:          "mock-user-1",
			Email:       "mock.user@example.com",
			AccessToken: "mock-access-token",
			Metadata:    map[string]any{"name": "Mock User"},
			ExpiresAt:   time.Now().Add(time.Hour),
		},
	}
}

func (m *MockIdentityProvider) SignUp(ctx context.Context, in ports.SignUpInput) (ports.SignUpResult, error) {
	m.mu.Lock()
	m.lastSignUp = in
	m.mu.Unlock()
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, in)
	}
	id := m.DefaultIdentity
	id.Email = in.Email
	id.Metadata = in.Metadata
	return ports.SignUpResult{Identity: id}, nil
}

func (m *MockIdentityProvider) SignInWithPassword(ctx context.Context, email, password string) (domainauth.Identity, error) {
	m.mu.Lock()
	m.signIns++
	m.mu.Unlock()
	if m.SignInWithPasswordFunc != nil {
		return m.SignInWithPasswordFunc(ctx, email, password)
	}
	return m.DefaultIdentity, nil
}

func (m *MockIdentityProvider) GetUser(ctx context.Context, accessToken string) (domainauth.Identity, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, accessToken)
	}
	if accessToken != m.DefaultIdentity.AccessToken {
		return domainauth.Identity{}, domainauth.NewError(domainauth.KindAuthenticationFailed, errors.New("unknown token"))
	}
	return m.DefaultIdentity, nil
}

// SignIns returns how many times SignInWithPassword was called.
func (m *MockIdentityProvider) SignIns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signIns
}

// LastSignUp returns the input of the most recent SignUp call.
func (m *MockIdentityProvider) LastSignUp() ports.SignUpInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSignUp
}

// MemorySessionStore is an in-memory session store for unit tests.
// It keeps the session record and the bare token under separate keys, like the Redis store.
type MemorySessionStore struct {
	// SaveErr, when set, fails every Save.
	SaveErr error

	mu       sync.Mutex
	sessions map[string]domainauth.Session
	tokens   map[string]string
	saves    int
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domainauth.Session),
		tokens:   make(map[string]string),
	}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.sessions[sess.ID] = sess
	m.tokens[sess.ID] = sess.Token
	m.saves++
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.Session{}, domainauth.ErrSessionNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Token(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[id]
	if !ok {
		return "", domainauth.ErrSessionNotFound
	}
	return tok, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.tokens, id)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Saves returns the number of successful Save calls.
func (m *MemorySessionStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// MemoryProfileStore is an in-memory profile table with the same upsert semantics as
// the SQL stores: on id conflict only email and updated_at change.
type MemoryProfileStore struct {
	// GetErr and UpsertErr inject failures into the corresponding calls.
	GetErr    error
	UpsertErr error
	Now       func() time.Time

	mu       sync.Mutex
	profiles map[string]domainauth.Profile
	upserts  int
}

// NewMemoryProfileStore creates an empty profile store.
func NewMemoryProfileStore(seed ...domainauth.Profile) *MemoryProfileStore {
	m := &MemoryProfileStore{profiles: make(map[string]domainauth.Profile)}
	for _, p := range seed {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *MemoryProfileStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

func (m *MemoryProfileStore) GetByID(_ context.Context, id string) (domainauth.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return domainauth.Profile{}, m.GetErr
	}
	p, ok := m.profiles[id]
	if !ok {
		return domainauth.Profile{}, apperrors.NotFound("profile not found")
	}
	return p, nil
}

func (m *MemoryProfileStore) Upsert(_ context.Context, p domainauth.Profile) (domainauth.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return domainauth.Profile{}, m.UpsertErr
	}
	m.upserts++
	now := m.now()
	if existing, ok := m.profiles[p.ID]; ok {
		existing.Email = p.Email
		existing.UpdatedAt = now
		m.profiles[p.ID] = existing
		return existing, nil
	}
	p.CreatedAt, p.UpdatedAt = now, now
	m.profiles[p.ID] = p
	return p, nil
}

func (m *MemoryProfileStore) List(_ context.Context, opts ports.ProfileListOptions) ([]domainauth.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domainauth.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		if opts.Role != nil && p.Role != *opts.Role {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if opts.Offset >= len(out) {
		return []domainauth.Profile{}, nil
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *MemoryProfileStore) UpdateRole(_ context.Context, id string, role domainauth.Role) (domainauth.Profile, error) {
	return m.update(id, func(p *domainauth.Profile) { p.Role = role })
}

func (m *MemoryProfileStore) UpdateName(_ context.Context, id, name string) (domainauth.Profile, error) {
	return m.update(id, func(p *domainauth.Profile) { p.Name = strings.TrimSpace(name) })
}

func (m *MemoryProfileStore) update(id string, fn func(*domainauth.Profile)) (domainauth.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return domainauth.Profile{}, apperrors.NotFound("profile not found")
	}
	fn(&p)
	p.UpdatedAt = m.now()
	m.profiles[id] = p
	return p, nil
}

// Profile returns the stored row for id, if any.
func (m *MemoryProfileStore) Profile(id string) (domainauth.Profile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	return p, ok
}

// Len returns the number of stored profiles.
func (m *MemoryProfileStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.profiles)
}

// Upserts returns the number of successful Upsert calls.
func (m *MemoryProfileStore) Upserts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}
