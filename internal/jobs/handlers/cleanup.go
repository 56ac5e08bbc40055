package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/friendix-ai/engagement-engine/internal/jobs"
)

// MessageTrimmer deletes chat history past the retention horizon.
type MessageTrimmer interface {
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
}

// CleanupHandler prunes chat history per the retention policy.
type CleanupHandler struct {
	messages MessageTrimmer
	log      *slog.Logger
}

// NewCleanupHandler constructs the handler.
func NewCleanupHandler(messages MessageTrimmer, log *slog.Logger) *CleanupHandler {
	if log == nil {
		log = slog.Default()
	}

	return &CleanupHandler{messages: messages, log: log}
}

// ProcessTask implements asynq.Handler.
func (h *CleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.MessageCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "cleanup: failed to decode payload",
			slog.String("task_type", t.Type()), slog.Any("error", err))
		return err
	}

	if payload.RetentionDays <= 0 {
		h.log.WarnContext(ctx, "cleanup: non-positive retention, skipping",
			slog.Int("retention_days", payload.RetentionDays))
		return nil
	}

	deleted, err := h.messages.DeleteOlderThan(ctx, payload.RetentionDays)
	if err != nil {
		return err
	}

	h.log.InfoContext(ctx, "chat history pruned",
		slog.Int64("deleted", deleted),
		slog.Int("retention_days", payload.RetentionDays))
	return nil
}
