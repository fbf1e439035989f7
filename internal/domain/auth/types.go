package auth

// Package auth contains domain-level types for the session bootstrap protocol:
// identities issued by the provider, stored profiles, and materialized sessions.
// It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

// Role is the authorization role persisted on a profile and copied into the session.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleOfficer Role = "officer"
	RoleAdmin   Role = "admin"
)

// DefaultRole is assigned when neither the profile store nor the provider metadata
// supplies a role.
const DefaultRole = RoleCitizen

// Roles returns the closed set of routable roles.
func Roles() []Role { return []Role{RoleCitizen, RoleOfficer, RoleAdmin} }

// Valid reports whether r is one of the routable roles (exact match).
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleOfficer, RoleAdmin:
		return true
	default:
		return false
	}
}

// NormalizeRole lowercases a role string. It does not validate.
func NormalizeRole(v string) Role { return Role(strings.ToLower(v)) }

// ParseRole normalizes v and reports whether the result is a routable role.
func ParseRole(v string) (Role, bool) {
	r := NormalizeRole(strings.TrimSpace(v))
	return r, r.Valid()
}

// Identity is the authenticated principal returned by the identity provider.
// Adapters map provider-specific payloads into this shape; it is never mutated.
type Identity struct {
	ID          string
	Email       string
	AccessToken string
	// Metadata is the free-form map recorded at sign-up (e.g. name, role).
	Metadata  map[string]any
	ExpiresAt time.Time // access token expiry; zero when unknown
}

// Profile is the application record keyed by Identity.ID.
type Profile struct {
	ID        string    `json:"id"         db:"id"`
	Name      string    `json:"name"       db:"name"`
	Email     string    `json:"email"      db:"email"`
	Role      Role      `json:"role"       db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Session is the server-side record written after a successful bootstrap.
// ID is the opaque handle carried by the session cookie; Token is the provider
// access token, also stored under its own key.
type Session struct {
	ID         string    `json:"id"`
	IdentityID string    `json:"identity_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
