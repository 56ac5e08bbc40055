// Package idempotency prevents a scheduled job from running twice for
// the same period when multiple workers share the queue.
package idempotency

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/friendix-ai/engagement-engine/pkg/redis"
)

// Guard is a Redis SETNX-based run-once lock. A key names one logical
// run (for example the sweep date); the first worker to acquire it
// proceeds, the rest skip.
type Guard struct {
	client *redis.Client
	log    *slog.Logger
}

// NewGuard constructs a Guard.
func NewGuard(client *redis.Client, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}

	return &Guard{client: client, log: log}
}

// TryAcquire claims the key for ttl. It returns false when another
// worker already holds it.
func (g *Guard) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	acquired, err := g.client.SetNX(ctx, guardKey(key), 1, ttl).Result()
	if err != nil {
		g.log.Error("failed to acquire run guard", slog.String("key", key), slog.Any("error", err))
		return false, fmt.Errorf("acquire run guard: %w", err)
	}

	return acquired, nil
}

// Release frees the key so the run can be repeated. Used when the
// guarded work failed before doing anything durable.
func (g *Guard) Release(ctx context.Context, key string) error {
	if err := g.client.Delete(ctx, guardKey(key)); err != nil {
		g.log.Error("failed to release run guard", slog.String("key", key), slog.Any("error", err))
		return fmt.Errorf("release run guard: %w", err)
	}

	return nil
}

func guardKey(key string) string {
	return "jobguard:" + key
}
