package usercache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendix-ai/engagement-engine/internal/user"
	"github.com/friendix-ai/engagement-engine/pkg/redis"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { client.Close() })

	return NewCache(client, time.Minute), mr
}

func TestCache_RoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	stats := &user.Stats{XP: 120, Level: 2, NextLevelXP: 150, Streak: 4}
	require.NoError(t, cache.Set(ctx, 7, stats))

	got, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, stats, got)
}

func TestCache_MissReturnsNil(t *testing.T) {
	cache, _ := newTestCache(t)

	got, err := cache.Get(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_Invalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 7, &user.Stats{XP: 10, Level: 1}))
	require.NoError(t, cache.Invalidate(ctx, 7))

	got, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_TTLExpires(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 7, &user.Stats{XP: 10, Level: 1}))
	mr.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got)
}
