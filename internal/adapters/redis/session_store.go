package redis

// Package redis provides Redis-based adapters for civicdesk.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	"github.com/civicdesk/civicdesk/internal/ports"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "session:"
	tokenSuffix   = ":token"
)

var _ ports.SessionStore = (*SessionStore)(nil)

// SessionStore is a Redis-based session store for production use.
// Each session occupies two keys sharing one TTL: <prefix>{<id>} holds the JSON
// session and <prefix>{<id>}:token holds the bare access token. The hash tag keeps
// both keys in one cluster slot.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
}

// NewSessionStore creates a new Redis-based session store.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return NewSessionStoreWithPrefix(client, defaultPrefix)
}

// NewSessionStoreWithPrefix creates a Redis session store with a custom key prefix.
func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string) *SessionStore {
	return &SessionStore{client: client, prefix: prefix}
}

// SessionKey returns the key holding the serialized session.
func (s *SessionStore) SessionKey(id string) string { return s.prefix + "{" + id + "}" }

// TokenKey returns the key holding the bare access token.
func (s *SessionStore) TokenKey(id string) string { return s.SessionKey(id) + tokenSuffix }

// Save writes both keys in one MULTI/EXEC, replacing any previous values.
func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session is expired")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.SessionKey(sess.ID), data, ttl)
		pipe.Set(ctx, s.TokenKey(sess.ID), sess.Token, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, domainauth.ErrSessionNotFound
	}

	data, err := s.client.Get(ctx, s.SessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Session{}, domainauth.ErrSessionNotFound
		}
		return domainauth.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.Session
	if unmarshalErr := json.Unmarshal(data, &sess); unmarshalErr != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", unmarshalErr)
	}

	// Redis TTL normally removes expired keys first.
	if sess.Expired(time.Now()) {
		if deleteErr := s.Delete(ctx, id); deleteErr != nil {
			return domainauth.Session{}, fmt.Errorf("cleanup expired session: %w", deleteErr)
		}
		return domainauth.Session{}, domainauth.ErrSessionNotFound
	}

	return sess, nil
}

// Token returns the bare access token stored next to session id.
func (s *SessionStore) Token(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", domainauth.ErrSessionNotFound
	}
	tok, err := s.client.Get(ctx, s.TokenKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domainauth.ErrSessionNotFound
		}
		return "", fmt.Errorf("redis get token: %w", err)
	}
	return tok, nil
}

// Delete removes both keys. Deleting a missing session is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.client.Del(ctx, s.SessionKey(id), s.TokenKey(id)).Err()
}
