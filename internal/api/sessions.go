package api

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/friendix-ai/engagement-engine/pkg/redis"
)

// sessionTTL keeps a remembered login valid for a month of inactivity.
const sessionTTL = 30 * 24 * time.Hour

// ErrSessionInvalid covers both unknown and expired tokens.
var ErrSessionInvalid = errors.New("session invalid or expired")

// SessionStore maps opaque bearer tokens to user IDs in Redis. Tokens
// are random UUIDs; the auto-login check refreshes the TTL so active
// users stay signed in.
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Issue creates a fresh token for the user.
func (s *SessionStore) Issue(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, sessionKey(token), userID, sessionTTL); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Resolve returns the user the token belongs to and slides its expiry.
func (s *SessionStore) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrSessionInvalid
	}

	raw, err := s.client.Get(ctx, sessionKey(token))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, ErrSessionInvalid
		}
		return 0, fmt.Errorf("read session: %w", err)
	}

	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrSessionInvalid
	}

	if err := s.client.Expire(ctx, sessionKey(token), sessionTTL).Err(); err != nil {
		return 0, fmt.Errorf("refresh session: %w", err)
	}

	return userID, nil
}

// Revoke deletes the token.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.client.Delete(ctx, sessionKey(token))
}

func sessionKey(token string) string {
	return "session:" + token
}
