package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	apperrors "github.com/civicdesk/civicdesk/internal/errors"
	"github.com/civicdesk/civicdesk/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockIdentityProvider_Defaults(t *testing.T) {
	provider := NewMockIdentityProvider()
	ctx := context.Background()

	id, err := provider.SignInWithPassword(ctx, "any@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "mock-user-1", id.ID)
	assert.Equal(t, 1, provider.SignIns())

	got, err := provider.GetUser(ctx, id.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id.ID, got.ID)

	_, err = provider.GetUser(ctx, "other")
	assert.ErrorIs(t, err, domainauth.ErrAuthenticationFailed)

	res, err := provider.SignUp(ctx, ports.SignUpInput{Email: "new@example.com", Metadata: map[string]any{"role": "officer"}})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", res.Identity.Email)
	assert.Equal(t, "officer", provider.LastSignUp().Metadata["role"])
}

func TestMockIdentityProvider_FuncOverride(t *testing.T) {
	provider := &MockIdentityProvider{
		SignInWithPasswordFunc: func(context.Context, string, string) (domainauth.Identity, error) {
			return domainauth.Identity{}, domainauth.ErrInvalidCredentials
		},
	}
	_, err := provider.SignInWithPassword(context.Background(), "a", "b")
	assert.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
}

func TestMemorySessionStore(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	require.Error(t, store.Save(ctx, domainauth.Session{}))
	require.NoError(t, store.Save(ctx, domainauth.Session{ID: "s1", Token: "tok"}))

	tok, err := store.Token(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
	_, err = store.Token(ctx, "s1")
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)

	store.SaveErr = errors.New("redis down")
	assert.Error(t, store.Save(ctx, domainauth.Session{ID: "s2"}))
	assert.Equal(t, 1, store.Saves())
}

func TestMemoryProfileStore_UpsertKeepsRoleAndName(t *testing.T) {
	store := NewMemoryProfileStore()
	ctx := context.Background()

	first, err := store.Upsert(ctx, domainauth.Profile{ID: "u1", Name: "Ana", Email: "a@example.com", Role: domainauth.RoleOfficer})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleOfficer, first.Role)

	second, err := store.Upsert(ctx, domainauth.Profile{ID: "u1", Name: "Other", Email: "new@example.com", Role: domainauth.RoleCitizen})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleOfficer, second.Role)
	assert.Equal(t, "Ana", second.Name)
	assert.Equal(t, "new@example.com", second.Email)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryProfileStore_ListAndUpdate(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryProfileStore(
		domainauth.Profile{ID: "a", Role: domainauth.RoleCitizen, CreatedAt: base},
		domainauth.Profile{ID: "b", Role: domainauth.RoleOfficer, CreatedAt: base.Add(time.Minute)},
		domainauth.Profile{ID: "c", Role: domainauth.RoleCitizen, CreatedAt: base.Add(2 * time.Minute)},
	)
	ctx := context.Background()

	citizen := domainauth.RoleCitizen
	got, err := store.List(ctx, ports.ProfileListOptions{Role: &citizen})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)

	got, err = store.List(ctx, ports.ProfileListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)

	updated, err := store.UpdateRole(ctx, "a", domainauth.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, updated.Role)

	_, err = store.UpdateName(ctx, "missing", "x")
	assert.True(t, apperrors.IsNotFound(err))
}
