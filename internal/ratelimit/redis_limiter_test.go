package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendix-ai/engagement-engine/pkg/redis"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRedisLimiter(t *testing.T) *RedisLimiter {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { client.Close() })

	return NewRedisLimiter(client, discardLogger())
}

func TestRedisLimiter_AllowsUnderLimit(t *testing.T) {
	limiter := newRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision, err := limiter.Allow(ctx, "login:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "request %d should be allowed", i+1)
	}
}

func TestRedisLimiter_RejectsOverLimit(t *testing.T) {
	limiter := newRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := limiter.Allow(ctx, "login:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
	}

	decision, err := limiter.Allow(ctx, "login:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Zero(t, decision.Remaining)
}

func TestRedisLimiter_KeysAreIndependent(t *testing.T) {
	limiter := newRedisLimiter(t)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "login:1.2.3.4", 1, time.Minute)
	require.NoError(t, err)

	decision, err := limiter.Allow(ctx, "login:5.6.7.8", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestRedisLimiter_ZeroLimitRejects(t *testing.T) {
	limiter := newRedisLimiter(t)

	decision, err := limiter.Allow(context.Background(), "login:1.2.3.4", 0, time.Minute)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestMemoryLimiter_SlidingWindow(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		decision, err := limiter.Allow(ctx, "signup:9.9.9.9", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	}

	decision, err := limiter.Allow(ctx, "signup:9.9.9.9", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestMemoryLimiter_Prune(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "signup:9.9.9.9", 2, time.Minute)
	require.NoError(t, err)

	// A fresh window survives a generous maxAge.
	limiter.Prune(time.Hour)
	limiter.mu.Lock()
	assert.Len(t, limiter.windows, 1)
	limiter.mu.Unlock()

	// A non-positive maxAge drops everything.
	limiter.Prune(-time.Nanosecond)
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Empty(t, limiter.windows)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (*Decision, error) {
	return nil, errors.New("redis down")
}

func TestFallbackLimiter_DegradesToMemory(t *testing.T) {
	limiter := NewFallbackLimiter(failingLimiter{}, NewMemoryLimiter(), discardLogger())
	ctx := context.Background()

	// Limit 4 halves to 2 in fallback mode.
	for i := 0; i < 2; i++ {
		decision, err := limiter.Allow(ctx, "login:1.2.3.4", 4, time.Minute)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	}

	_, err := limiter.Allow(ctx, "login:1.2.3.4", 4, time.Minute)
	assert.ErrorIs(t, err, ErrLimitExceeded)
}
