package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	"github.com/civicdesk/civicdesk/internal/observability/metrics"
	"github.com/civicdesk/civicdesk/internal/observability/statsd"
	"github.com/civicdesk/civicdesk/internal/ports"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider ports.IdentityProvider // Required
	Pipeline AuthPipeline           // Required
	Config   AuthServiceConfig
}

// AuthPipeline holds the bootstrap stages that follow authentication.
type AuthPipeline struct {
	Resolver *ProfileResolver
	Sessions *SessionKeeper
	Router   *RoleRouter // Optional: defaults to NewRoleRouter()
}

// AuthServiceConfig holds behaviour switches and observability hooks.
type AuthServiceConfig struct {
	// RollbackOnUnknownRole revokes the just-written session when routing fails.
	RollbackOnUnknownRole bool
	// EmailRedirectTo is the default confirmation link target for sign-ups.
	EmailRedirectTo string
	Logger          *slog.Logger
	Metrics         statsd.Sink
}

// AuthService runs the session bootstrap: authenticate, resolve the profile,
// materialize the session, route by role.
type AuthService struct {
	provider ports.IdentityProvider
	resolver *ProfileResolver
	sessions *SessionKeeper
	router   *RoleRouter
	cfg      AuthServiceConfig
	logger   *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Provider == nil {
		panic("AuthService requires a Provider")
	}
	if opts.Pipeline.Resolver == nil || opts.Pipeline.Sessions == nil {
		panic("AuthService requires a Resolver and a SessionKeeper")
	}
	router := opts.Pipeline.Router
	if router == nil {
		router = NewRoleRouter()
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		provider: opts.Provider,
		resolver: opts.Pipeline.Resolver,
		sessions: opts.Pipeline.Sessions,
		router:   router,
		cfg:      opts.Config,
		logger:   logger.With("component", "auth_service"),
	}
}

// LoginInput carries credentials and the caller's current session id, if any.
type LoginInput struct {
	Email             string
	Password          string
	PreviousSessionID string
}

// LoginResult is the outcome of a bootstrap.
//
// On UnknownRole, Login returns both a result and the error: the session has been
// written (SessionWritten is true) unless rollback is enabled.
type LoginResult struct {
	Session        domainauth.Session
	Destination    Destination
	Resolution     Resolution
	SessionWritten bool
	State          domainauth.State
}

// Login authenticates with email and password and bootstraps a session.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (res *LoginResult, err error) {
	start := time.Now()
	flow := NewFlow("login", s.logger)
	defer func() { s.emit(metrics.AuthLogin, res, err, time.Since(start)) }()

	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		err = domainauth.NewError(domainauth.KindInvalidCredentials, errors.New("email and password are required"))
		flow.Fail(ctx, err)
		return nil, err
	}

	flow.Advance(ctx, domainauth.StateAuthenticating)
	identity, err := s.provider.SignInWithPassword(ctx, email, in.Password)
	if err != nil {
		err = classified(err)
		flow.Fail(ctx, err)
		return nil, err
	}
	if identity.ID == "" {
		err = domainauth.NewError(domainauth.KindAuthenticationFailed, errors.New("provider returned no user"))
		flow.Fail(ctx, err)
		return nil, err
	}

	return s.bootstrap(ctx, flow, identity, in.PreviousSessionID)
}

// RegisterInput carries a sign-up request. Name and Role are folded into Metadata.
type RegisterInput struct {
	Email             string
	Password          string
	Name              string
	Role              string
	Metadata          map[string]any
	EmailRedirectTo   string
	PreviousSessionID string
}

// RegisterResult is the outcome of a sign-up. Login is set when the provider issued a
// token and the bootstrap ran; otherwise ConfirmationRequired is true.
type RegisterResult struct {
	Identity             domainauth.Identity
	ConfirmationRequired bool
	Resolution           Resolution
	Login                *LoginResult
}

// Register signs up a new account. The profile row is created right away, so the
// role chosen at sign-up is persisted before the first login.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (res *RegisterResult, err error) {
	defer func() {
		var login *LoginResult
		if res != nil {
			login = res.Login
		}
		s.emit(metrics.AuthRegister, login, err, 0)
	}()

	md := make(map[string]any, len(in.Metadata)+2)
	maps.Copy(md, in.Metadata)
	if name := strings.TrimSpace(in.Name); name != "" {
		md["name"] = name
	}
	if role := strings.TrimSpace(in.Role); role != "" {
		md["role"] = role
	}
	redirect := in.EmailRedirectTo
	if redirect == "" {
		redirect = s.cfg.EmailRedirectTo
	}

	signUp, err := s.provider.SignUp(ctx, ports.SignUpInput{
		Email:           strings.TrimSpace(in.Email),
		Password:        in.Password,
		Metadata:        md,
		EmailRedirectTo: redirect,
	})
	if err != nil {
		return nil, classified(err)
	}
	if signUp.Identity.ID == "" {
		return nil, domainauth.NewError(domainauth.KindAuthenticationFailed, errors.New("provider returned no user"))
	}

	if signUp.ConfirmationRequired || signUp.Identity.AccessToken == "" {
		return &RegisterResult{
			Identity:             signUp.Identity,
			ConfirmationRequired: true,
			Resolution:           s.resolver.Resolve(ctx, signUp.Identity),
		}, nil
	}

	flow := NewFlow("register", s.logger)
	flow.Advance(ctx, domainauth.StateAuthenticating)
	login, err := s.bootstrap(ctx, flow, signUp.Identity, in.PreviousSessionID)
	out := &RegisterResult{Identity: signUp.Identity, Login: login}
	if login != nil {
		out.Resolution = login.Resolution
	}
	if err != nil && login == nil {
		return nil, err
	}
	return out, err
}

// bootstrap runs profile resolution, session materialization and routing for an
// authenticated identity. flow must be in StateAuthenticating.
func (s *AuthService) bootstrap(ctx context.Context, flow *Flow, identity domainauth.Identity, previousID string) (*LoginResult, error) {
	flow.Advance(ctx, domainauth.StateResolvingProfile)
	resolution := s.resolver.Resolve(ctx, identity)

	flow.Advance(ctx, domainauth.StateMaterializing)
	sess := s.sessions.Materialize(identity, resolution.Profile)
	if err := s.sessions.Replace(ctx, previousID, sess); err != nil {
		err = domainauth.NewError(domainauth.KindAuthenticationFailed, err)
		flow.Fail(ctx, err)
		return nil, err
	}
	res := &LoginResult{Session: sess, Resolution: resolution, SessionWritten: true}

	flow.Advance(ctx, domainauth.StateRouting)
	dest, err := s.router.Route(sess.Role)
	if err != nil {
		if s.cfg.RollbackOnUnknownRole {
			if revokeErr := s.sessions.Revoke(ctx, sess.ID); revokeErr != nil {
				s.logger.ErrorContext(ctx, "failed to roll back session", "error", revokeErr)
			} else {
				res.SessionWritten = false
			}
		}
		s.logger.WarnContext(ctx, "session role has no destination",
			"identity_id", identity.ID, "role", string(sess.Role), "session_kept", res.SessionWritten)
		flow.Fail(ctx, err)
		res.State = flow.State()
		return res, err
	}

	flow.Advance(ctx, domainauth.StateDone)
	res.Destination = dest
	res.State = flow.State()
	return res, nil
}

// GetSession retrieves a live session by ID.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	sess, err := s.sessions.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Logout removes a session. Unknown or empty ids are not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Revoke(ctx, sessionID)
}

// Route exposes the role router for handlers that redirect an existing session.
func (s *AuthService) Route(role domainauth.Role) (Destination, error) {
	return s.router.Route(role)
}

func (s *AuthService) emit(name string, res *LoginResult, err error, d time.Duration) {
	m := metrics.AuthMetric{Name: name, Err: err, Duration: d}
	if res != nil {
		m.Role = string(res.Session.Role)
		m.Source = string(res.Resolution.Source)
	}
	metrics.EmitAuth(s.cfg.Metrics, m)
}

// classified guarantees a taxonomy error, in case a provider adapter let a raw one through.
func classified(err error) error {
	if domainauth.KindOf(err) != "" {
		return err
	}
	return domainauth.NewError(domainauth.KindAuthenticationFailed, fmt.Errorf("identity provider: %w", err))
}
