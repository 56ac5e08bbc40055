package idempotency

import (
	"context"
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

func newTestGuard(t *testing.T) (*Guard, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { client.Close() })

	return NewGuard(client, slog.New(slog.NewTextHandler(io.Discard, nil))), mr
}

func TestGuard_FirstAcquireWins(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	first, err := guard.TryAcquire(ctx, "sweep:2025-03-10", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := guard.TryAcquire(ctx, "sweep:2025-03-10", time.Hour)
	require.NoError(t, err)
	assert.False(t, second)
}

func TestGuard_DifferentKeysIndependent(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	_, err := guard.TryAcquire(ctx, "sweep:2025-03-10", time.Hour)
	require.NoError(t, err)

	next, err := guard.TryAcquire(ctx, "sweep:2025-03-11", time.Hour)
	require.NoError(t, err)
	assert.True(t, next)
}

func TestGuard_ReleaseAllowsReacquire(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()

	_, err := guard.TryAcquire(ctx, "sweep:2025-03-10", time.Hour)
	require.NoError(t, err)
	require.NoError(t, guard.Release(ctx, "sweep:2025-03-10"))

	again, err := guard.TryAcquire(ctx, "sweep:2025-03-10", time.Hour)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestGuard_TTLExpires(t *testing.T) {
	guard, mr := newTestGuard(t)
	ctx := context.Background()

	_, err := guard.TryAcquire(ctx, "sweep:2025-03-10", time.Hour)
	require.NoError(t, err)

	mr.FastForward(time.Hour + time.Second)

	again, err := guard.TryAcquire(ctx, "sweep:2025-03-10", time.Hour)
	require.NoError(t, err)
	assert.True(t, again)
}
