package service

import (
	"fmt"
	"strings"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
)

// Destination is where a signed-in user lands.
type Destination struct {
	Role domainauth.Role `json:"role"`
	Path string          `json:"path"`
}

// RoleRouter maps a session role to its landing page. Matching is case-insensitive.
type RoleRouter struct {
	paths map[domainauth.Role]string
}

// NewRoleRouter returns the router for the three built-in roles.
func NewRoleRouter() *RoleRouter {
	return &RoleRouter{paths: map[domainauth.Role]string{
		domainauth.RoleCitizen: "/citizen",
		domainauth.RoleOfficer: "/officer",
		domainauth.RoleAdmin:   "/admin",
	}}
}

// Route returns the destination for role, or an UnknownRole error.
func (r *RoleRouter) Route(role domainauth.Role) (Destination, error) {
	key := domainauth.NormalizeRole(strings.TrimSpace(string(role)))
	path, ok := r.paths[key]
	if !ok {
		return Destination{}, domainauth.NewError(domainauth.KindUnknownRole, fmt.Errorf("no destination for role %q", role))
	}
	return Destination{Role: key, Path: path}, nil
}

// Guard authorizes a session for a required role.
type Guard struct {
	fold bool
}

// NewGuard returns a guard. With caseInsensitive false (the default deployment),
// the stored role must equal the required role byte for byte.
func NewGuard(caseInsensitive bool) Guard { return Guard{fold: caseInsensitive} }

// IsAuthorized reports whether sess may access pages that require role.
func (g Guard) IsAuthorized(sess *domainauth.Session, required domainauth.Role) bool {
	if sess == nil || sess.Role == "" {
		return false
	}
	if g.fold {
		return strings.EqualFold(string(sess.Role), string(required))
	}
	return sess.Role == required
}
