package errors

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureHandler struct {
	levels []slog.Level
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.levels = append(h.levels, r.Level)
	return nil
}
func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func TestHandler_ReturnsUserMessageAndRetryable(t *testing.T) {
	h := NewHandler(slog.New(&captureHandler{}), false)

	msg, retryable := h.Handle(context.Background(), NewDispatchError("email", errors.New("503")))
	assert.Equal(t, "Notification service is temporarily unavailable", msg)
	assert.True(t, retryable)
}

func TestHandler_UnknownErrorStaysGeneric(t *testing.T) {
	h := NewHandler(slog.New(&captureHandler{}), false)

	msg, retryable := h.Handle(context.Background(), errors.New("pq: relation missing"))
	assert.Equal(t, genericUserMessage, msg)
	assert.False(t, retryable)
	// Internals never leak to the client.
	assert.NotContains(t, msg, "pq")
}

func TestHandler_LogLevelTracksSeverity(t *testing.T) {
	capture := &captureHandler{}
	h := NewHandler(slog.New(capture), false)

	// Expected rejections stay out of the error stream.
	_, _ = h.Handle(context.Background(), NewValidationError("bad input"))
	_, _ = h.Handle(context.Background(), NewAuthError("wrong password"))
	_, _ = h.Handle(context.Background(), NewPersistenceError(errors.New("db down")))

	require.Len(t, capture.levels, 3)
	assert.Equal(t, slog.LevelWarn, capture.levels[0])
	assert.Equal(t, slog.LevelWarn, capture.levels[1])
	assert.Equal(t, slog.LevelError, capture.levels[2])
}

func TestHandler_NilError(t *testing.T) {
	h := NewHandler(slog.New(&captureHandler{}), false)

	msg, retryable := h.Handle(context.Background(), nil)
	assert.Empty(t, msg)
	assert.False(t, retryable)
}
