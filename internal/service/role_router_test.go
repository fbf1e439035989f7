package service

import (
	"testing"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleRouter_Route(t *testing.T) {
	r := NewRoleRouter()
	tests := []struct {
		role domainauth.Role
		path string
	}{
		{role: "citizen", path: "/citizen"},
		{role: "officer", path: "/officer"},
		{role: "admin", path: "/admin"},
		{role: "Officer", path: "/officer"},
		{role: " ADMIN ", path: "/admin"},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			dest, err := r.Route(tt.role)
			require.NoError(t, err)
			assert.Equal(t, tt.path, dest.Path)
		})
	}
}

func TestRoleRouter_UnknownRole(t *testing.T) {
	r := NewRoleRouter()
	for _, role := range []domainauth.Role{"", "superuser", "guest", "citizens"} {
		_, err := r.Route(role)
		assert.ErrorIs(t, err, domainauth.ErrUnknownRole, "role %q", role)
	}
}

func TestGuard_IsAuthorized(t *testing.T) {
	exact := NewGuard(false)
	fold := NewGuard(true)
	officer := &domainauth.Session{Role: "officer"}
	legacy := &domainauth.Session{Role: "Officer"}

	assert.True(t, exact.IsAuthorized(officer, domainauth.RoleOfficer))
	assert.False(t, exact.IsAuthorized(legacy, domainauth.RoleOfficer))
	assert.False(t, exact.IsAuthorized(officer, domainauth.RoleAdmin))
	assert.False(t, exact.IsAuthorized(nil, domainauth.RoleOfficer))

	assert.True(t, fold.IsAuthorized(legacy, domainauth.RoleOfficer))
	assert.False(t, fold.IsAuthorized(legacy, domainauth.RoleAdmin))
	assert.False(t, fold.IsAuthorized(&domainauth.Session{}, ""))
}
