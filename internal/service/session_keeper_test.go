package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	"github.com/civicdesk/civicdesk/internal/mocks"
	authmocks "github.com/civicdesk/civicdesk/internal/mocks/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSessionKeeper_Materialize(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	k := NewSessionKeeper(SessionKeeperOptions{Store: authmocks.NewMemorySessionStore(), TTL: time.Hour})
	k.now = func() time.Time { return now }
	k.newID = func() string { return "sess-1" }

	id := domainauth.Identity{ID: "u1", Email: "a@b.com", AccessToken: "t", Metadata: map[string]any{"name": "ignored"}}
	p := domainauth.Profile{ID: "u1", Name: "A", Email: "old@b.com", Role: domainauth.RoleOfficer}

	t.Run("token expiry later than ttl", func(t *testing.T) {
		id.ExpiresAt = now.Add(3 * time.Hour)
		got := k.Materialize(id, p)
		assert.Equal(t, domainauth.Session{
			ID: "sess-1", IdentityID: "u1", Email: "a@b.com", Name: "A",
			Role: domainauth.RoleOfficer, Token: "t", ExpiresAt: now.Add(time.Hour),
		}, got)
	})

	t.Run("token expiry earlier than ttl", func(t *testing.T) {
		id.ExpiresAt = now.Add(10 * time.Minute)
		assert.Equal(t, now.Add(10*time.Minute), k.Materialize(id, p).ExpiresAt)
	})

	t.Run("unknown token expiry", func(t *testing.T) {
		id.ExpiresAt = time.Time{}
		assert.Equal(t, now.Add(time.Hour), k.Materialize(id, p).ExpiresAt)
	})
}

func TestSessionKeeper_ReplaceOverwritesPrevious(t *testing.T) {
	store := authmocks.NewMemorySessionStore()
	k := NewSessionKeeper(SessionKeeperOptions{Store: store})
	ctx := context.Background()

	first := domainauth.Session{ID: "s1", Role: domainauth.RoleAdmin, Name: "Old", Token: "t1"}
	require.NoError(t, k.Replace(ctx, "", first))

	second := domainauth.Session{ID: "s2", Role: domainauth.RoleCitizen, Token: "t2"}
	require.NoError(t, k.Replace(ctx, "s1", second))

	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
	got, err := store.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, second, got, "nothing merged from the previous session")
}

func TestSessionKeeper_ReplaceIgnoresDeleteFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	k := NewSessionKeeper(SessionKeeperOptions{Store: store})
	sess := domainauth.Session{ID: "s2"}

	gomock.InOrder(
		store.EXPECT().Delete(gomock.Any(), "s1").Return(errors.New("timeout")),
		store.EXPECT().Save(gomock.Any(), sess).Return(nil),
	)
	require.NoError(t, k.Replace(context.Background(), "s1", sess))
}

func TestSessionKeeper_ReplaceSaveFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	k := NewSessionKeeper(SessionKeeperOptions{Store: store})

	store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("read only replica"))
	err := k.Replace(context.Background(), "", domainauth.Session{ID: "s1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save session")
}

// Concurrent logins from the same browser end with exactly one session.
func TestSessionKeeper_ConcurrentReplaceLastWriteWins(t *testing.T) {
	store := authmocks.NewMemorySessionStore()
	k := NewSessionKeeper(SessionKeeperOptions{Store: store})
	ctx := context.Background()
	require.NoError(t, k.Replace(ctx, "", domainauth.Session{ID: "base"}))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		last = "base"
	)
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			id := fmt.Sprintf("s%d", i)
			assert.NoError(t, k.Replace(ctx, last, domainauth.Session{ID: id}))
			last = id
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, store.Len())
}

func TestSessionKeeper_Revoke(t *testing.T) {
	store := authmocks.NewMemorySessionStore()
	k := NewSessionKeeper(SessionKeeperOptions{Store: store})
	ctx := context.Background()

	require.NoError(t, k.Revoke(ctx, ""))
	require.NoError(t, k.Replace(ctx, "", domainauth.Session{ID: "s1"}))
	require.NoError(t, k.Revoke(ctx, "s1"))
	assert.Equal(t, 0, store.Len())
}
