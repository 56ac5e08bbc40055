// Package ratelimit throttles the public signup and login endpoints.
// The primary backend is a Redis sliding window shared across
// replicas, with an in-memory fallback when Redis is unreachable.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrLimitExceeded indicates the caller has used up its window.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	RetryAt   time.Time
}

// Limiter evaluates whether a key may perform one more request inside
// the window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Decision, error)
}
