package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is the in-process fallback used when Redis is down.
// Windows are tracked per key as timestamp slices; correctness is only
// per-replica, which is acceptable for a degraded mode.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter returns an empty in-memory limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string][]time.Time)}
}

// Allow enforces the sliding window for the key.
func (m *MemoryLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Decision, error) {
	now := time.Now()
	start := now.Add(-window)

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.windows[key][:0]
	for _, t := range m.windows[key] {
		if !t.Before(start) {
			kept = append(kept, t)
		}
	}

	allowed := len(kept) < limit
	if allowed {
		kept = append(kept, now)
	}
	m.windows[key] = kept

	remaining := limit - len(kept)
	if remaining < 0 {
		remaining = 0
	}

	return &Decision{Allowed: allowed, Remaining: remaining, RetryAt: now.Add(window)}, nil
}

// Prune drops keys whose newest entry is older than maxAge. Called
// periodically so abandoned keys do not accumulate.
func (m *MemoryLimiter) Prune(maxAge time.Duration) {
	// A non-positive maxAge puts the cutoff in the future and drops
	// every window.
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, times := range m.windows {
		if len(times) == 0 || times[len(times)-1].Before(cutoff) {
			delete(m.windows, key)
		}
	}
}
