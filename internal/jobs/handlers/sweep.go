// Package handlers holds the asynq task handlers.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/friendix-ai/engagement-engine/internal/engagement"
	"github.com/friendix-ai/engagement-engine/internal/idempotency"
	"github.com/friendix-ai/engagement-engine/internal/jobs"
	"github.com/friendix-ai/engagement-engine/pkg/metrics"
)

// guardTTL keeps the sweep-once key alive well past the run window
// but under two schedule periods.
const guardTTL = 20 * time.Hour

// SweepHandler runs the daily inactivity sweep. A Redis guard keyed
// by the sweep date makes the run once-per-day across replicas.
type SweepHandler struct {
	engine *engagement.Engine
	guard  *idempotency.Guard
	clock  engagement.Clock
	log    *slog.Logger
}

// NewSweepHandler constructs the handler.
func NewSweepHandler(engine *engagement.Engine, guard *idempotency.Guard, clock engagement.Clock, log *slog.Logger) *SweepHandler {
	if clock == nil {
		clock = engagement.SystemClock()
	}
	if log == nil {
		log = slog.Default()
	}

	return &SweepHandler{engine: engine, guard: guard, clock: clock, log: log}
}

// ProcessTask implements asynq.Handler.
func (h *SweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.SweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "sweep: failed to decode payload",
			slog.String("task_type", t.Type()), slog.Any("error", err))
		return err
	}

	key := "sweep:" + h.clock.Now().UTC().Format("2006-01-02")
	acquired, err := h.guard.TryAcquire(ctx, key, guardTTL)
	if err != nil {
		return err
	}
	if !acquired {
		h.log.InfoContext(ctx, "sweep: already ran today, skipping", slog.String("key", key))
		return nil
	}

	start := time.Now()
	report, err := h.engine.Sweep(ctx)
	if err != nil {
		// Nothing durable happened; let the next attempt retry today.
		if releaseErr := h.guard.Release(ctx, key); releaseErr != nil {
			h.log.ErrorContext(ctx, "sweep: failed to release run guard",
				slog.String("key", key), slog.Any("error", releaseErr))
		}
		return err
	}

	noticesByTier := make(map[int]int)
	for _, action := range report.Actions {
		if action.Tier > 0 {
			noticesByTier[action.Tier]++
		}
	}
	metrics.RecordSweep(time.Since(start), report.Scanned, report.Nudges, report.Errors, noticesByTier)

	return nil
}
