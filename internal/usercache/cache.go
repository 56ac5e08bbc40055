// Package usercache caches profile stat reads in Redis. Stats are the
// hottest read path and change only on login, chat, or the sweep, so
// a short TTL plus explicit invalidation keeps them fresh.
package usercache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/friendix-ai/engagement-engine/internal/user"
	"github.com/friendix-ai/engagement-engine/pkg/redis"
)

// DefaultTTL bounds staleness when an invalidation is missed.
const DefaultTTL = 5 * time.Minute

// Cache stores rendered profile stats per user.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs the cache. A non-positive ttl falls back to
// DefaultTTL.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Get fetches cached stats. A miss returns (nil, nil).
func (c *Cache) Get(ctx context.Context, userID int64) (*user.Stats, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, cacheKey(userID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached stats: %w", err)
	}

	var stats user.Stats
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return nil, fmt.Errorf("decode cached stats: %w", err)
	}

	return &stats, nil
}

// Set stores the stats for the configured TTL.
func (c *Cache) Set(ctx context.Context, userID int64, stats *user.Stats) error {
	if c == nil || c.client == nil || stats == nil {
		return nil
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode stats for cache: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(userID), payload, c.ttl); err != nil {
		return fmt.Errorf("set cached stats: %w", err)
	}

	return nil
}

// Invalidate drops the cached entry. Called whenever the engagement
// record changes.
func (c *Cache) Invalidate(ctx context.Context, userID int64) error {
	if c == nil || c.client == nil {
		return nil
	}

	if err := c.client.Delete(ctx, cacheKey(userID)); err != nil {
		return fmt.Errorf("delete cached stats: %w", err)
	}

	return nil
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("stats:%d", userID)
}
