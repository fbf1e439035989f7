package service

import (
	"context"
	"testing"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	"github.com/stretchr/testify/assert"
)

func TestFlow_HappyPath(t *testing.T) {
	ctx := context.Background()
	f := NewFlow("login", nil)
	for _, next := range []domainauth.State{
		domainauth.StateAuthenticating,
		domainauth.StateResolvingProfile,
		domainauth.StateMaterializing,
		domainauth.StateRouting,
		domainauth.StateDone,
	} {
		assert.True(t, f.Advance(ctx, next), "advance to %s", next)
	}
	assert.Equal(t, domainauth.StateDone, f.State())
	assert.False(t, f.Advance(ctx, domainauth.StateFailed), "terminal")
}

func TestFlow_RejectsSkips(t *testing.T) {
	f := NewFlow("login", nil)
	assert.False(t, f.Advance(context.Background(), domainauth.StateRouting))
	assert.Equal(t, domainauth.StateIdle, f.State())
}

func TestFlow_Fail(t *testing.T) {
	ctx := context.Background()

	f := NewFlow("login", nil)
	f.Fail(ctx, domainauth.ErrRateLimited)
	assert.Equal(t, domainauth.StateFailed, f.State())
	assert.Equal(t, domainauth.KindRateLimited, f.Kind())

	f = NewFlow("login", nil)
	f.Advance(ctx, domainauth.StateAuthenticating)
	f.Advance(ctx, domainauth.StateResolvingProfile)
	f.Fail(ctx, assert.AnError)
	assert.Equal(t, domainauth.StateFailed, f.State())
	assert.Equal(t, domainauth.KindAuthenticationFailed, f.Kind())
}
