package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	"github.com/civicdesk/civicdesk/internal/ports"
	"github.com/google/uuid"
)

// ErrSessionExpired is returned for sessions past their expiry. It matches
// domainauth.ErrSessionNotFound so callers can treat both as "signed out".
var ErrSessionExpired = fmt.Errorf("session expired: %w", domainauth.ErrSessionNotFound)

// SessionKeeperOptions groups dependencies for SessionKeeper.
type SessionKeeperOptions struct {
	Store  ports.SessionStore // Required
	TTL    time.Duration      // Optional: defaults to 8h
	Logger *slog.Logger
}

// SessionKeeper is the single writer of session state. Every create, replace and
// revoke goes through it, serialized by one mutex.
type SessionKeeper struct {
	mu     sync.Mutex
	store  ports.SessionStore
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewSessionKeeper constructs a SessionKeeper.
func NewSessionKeeper(opts SessionKeeperOptions) *SessionKeeper {
	if opts.Store == nil {
		panic("SessionKeeper requires a Store")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionKeeper{
		store:  opts.Store,
		ttl:    ttl,
		logger: logger.With("component", "session_keeper"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Materialize merges identity and profile into a new session. Name and role come from
// the profile; email, token and identity id from the identity. Nothing is written.
func (k *SessionKeeper) Materialize(id domainauth.Identity, p domainauth.Profile) domainauth.Session {
	expires := k.now().Add(k.ttl)
	if !id.ExpiresAt.IsZero() && id.ExpiresAt.Before(expires) {
		expires = id.ExpiresAt
	}
	return domainauth.Session{
		ID:         k.newID(),
		IdentityID: id.ID,
		Email:      id.Email,
		Name:       p.Name,
		Role:       p.Role,
		Token:      id.AccessToken,
		ExpiresAt:  expires.UTC(),
	}
}

// Replace stores sess, first removing previousID when it names a different session.
// The write is a full overwrite; nothing from the previous session is carried over.
func (k *SessionKeeper) Replace(ctx context.Context, previousID string, sess domainauth.Session) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if previousID != "" && previousID != sess.ID {
		if err := k.store.Delete(ctx, previousID); err != nil {
			k.logger.WarnContext(ctx, "failed to remove previous session", "error", err)
		}
	}
	if err := k.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Revoke deletes a session. Empty ids are a no-op.
func (k *SessionKeeper) Revoke(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Current loads a live session, removing it when expired.
func (k *SessionKeeper) Current(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, domainauth.ErrSessionNotFound
	}
	sess, err := k.store.Get(ctx, id)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("get session: %w", err)
	}
	if sess.Expired(k.now()) {
		if revokeErr := k.Revoke(ctx, id); revokeErr != nil {
			return domainauth.Session{}, errors.Join(ErrSessionExpired, revokeErr)
		}
		return domainauth.Session{}, ErrSessionExpired
	}
	return sess, nil
}
