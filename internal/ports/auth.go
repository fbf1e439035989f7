package ports

// Package ports defines interfaces (hexagonal ports) for the session bootstrap protocol.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
)

// SignUpInput carries the fields sent to the provider when creating an account.
type SignUpInput struct {
	Email    string
	Password string
	// Metadata is stored by the provider with the account (name, role, free-form fields).
	Metadata map[string]any
	// EmailRedirectTo is where the confirmation link lands, if the provider sends one.
	EmailRedirectTo string
}

// SignUpResult is the outcome of a successful sign-up.
type SignUpResult struct {
	Identity domainauth.Identity
	// ConfirmationRequired is true when the provider created the account but issued no token.
	ConfirmationRequired bool
}

// IdentityProvider authenticates credentials against the external identity provider.
// Every error returned is a *domainauth.Error classified at the adapter boundary.
type IdentityProvider interface {
	SignUp(ctx context.Context, in SignUpInput) (SignUpResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (domainauth.Identity, error)
	// GetUser returns the identity behind an access token.
	GetUser(ctx context.Context, accessToken string) (domainauth.Identity, error)
}

// ProfileStore is the profile table as seen by the resolver.
type ProfileStore interface {
	// GetByID returns the profile for an identity id; a missing row is an
	// apperrors not_found error.
	GetByID(ctx context.Context, id string) (domainauth.Profile, error)
	// Upsert inserts p, or on id conflict refreshes email only, and returns the stored row.
	Upsert(ctx context.Context, p domainauth.Profile) (domainauth.Profile, error)
}

// ProfileListOptions filters and pages profile listings.
type ProfileListOptions struct {
	Role   *domainauth.Role
	Limit  int
	Offset int
}

// ProfileDirectory is the administrative view of the profile table.
type ProfileDirectory interface {
	ProfileStore
	List(ctx context.Context, opts ProfileListOptions) ([]domainauth.Profile, error)
	UpdateRole(ctx context.Context, id string, role domainauth.Role) (domainauth.Profile, error)
	UpdateName(ctx context.Context, id, name string) (domainauth.Profile, error)
}

// SessionStore persists sessions under two keys: the session record and its bare token.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Token(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
}
