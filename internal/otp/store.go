// Package otp implements a time-bounded one-time-code store backed by
// Redis. Codes expire through TTLs instead of growing an in-process
// map without bound.
package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/friendix-ai/engagement-engine/pkg/redis"
)

// DefaultTTL bounds how long a code stays redeemable when the config
// does not override it.
const DefaultTTL = 5 * time.Minute

var (
	// ErrCodeInvalid covers both an expired code and a mismatch, so a
	// caller cannot distinguish which keys exist.
	ErrCodeInvalid = errors.New("code invalid or expired")
)

// Store issues and redeems one-time codes keyed by email. Redemption
// is consume-on-success: a valid code works exactly once.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// NewStore constructs a Store. A non-positive ttl falls back to
// DefaultTTL.
func NewStore(client *redis.Client, ttl time.Duration, log *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = slog.Default()
	}

	return &Store{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Put stores the code for the key, replacing any previous one and
// restarting the expiry window.
func (s *Store) Put(ctx context.Context, key, code string) error {
	return s.PutFor(ctx, key, code, s.ttl)
}

// PutFor stores the code with an explicit expiry, for entries that
// outlive the store's default window such as reset tokens.
func (s *Store) PutFor(ctx context.Context, key, code string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}
	if err := s.client.Set(ctx, storeKey(key), code, ttl); err != nil {
		s.log.Error("failed to store one-time code", slog.String("key", key), slog.Any("error", err))
		return fmt.Errorf("store code: %w", err)
	}

	return nil
}

// TakeIfValid redeems the code for the key: when it matches and has
// not expired the entry is deleted and nil is returned. Any other
// outcome is ErrCodeInvalid.
func (s *Store) TakeIfValid(ctx context.Context, key, code string) error {
	stored, err := s.client.Get(ctx, storeKey(key))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return ErrCodeInvalid
		}
		return fmt.Errorf("read code: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return ErrCodeInvalid
	}

	if err := s.client.Delete(ctx, storeKey(key)); err != nil {
		return fmt.Errorf("consume code: %w", err)
	}

	return nil
}

func storeKey(key string) string {
	return "otp:" + key
}
