package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// FallbackLimiter tries the Redis limiter first and degrades to the
// in-memory one when Redis errors. The fallback halves the limit so a
// Redis outage never loosens throttling.
type FallbackLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
}

var _ Limiter = (*FallbackLimiter)(nil)

// NewFallbackLimiter wires the two backends together.
func NewFallbackLimiter(primary, fallback Limiter, log *slog.Logger) *FallbackLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &FallbackLimiter{primary: primary, fallback: fallback, log: log}
}

// Allow evaluates against the primary backend, then the fallback.
func (f *FallbackLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Decision, error) {
	decision, err := f.primary.Allow(ctx, key, limit, window)
	if err == nil {
		if !decision.Allowed {
			return decision, ErrLimitExceeded
		}
		return decision, nil
	}

	f.log.Warn("redis limiter failed, using in-memory fallback",
		slog.String("key", key), slog.Any("error", err))

	reduced := limit / 2
	if reduced <= 0 {
		reduced = 1
	}

	decision, err = f.fallback.Allow(ctx, key, reduced, window)
	if err != nil {
		return decision, err
	}
	if !decision.Allowed {
		return decision, ErrLimitExceeded
	}

	return decision, nil
}
