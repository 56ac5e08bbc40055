package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/friendix-ai/engagement-engine/pkg/logger"
)

const genericUserMessage = "Something went wrong. Please try again later"

// Handler centralizes error logging and Sentry escalation. It returns
// the message safe to show a user plus whether a retry makes sense.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle logs the error at a level matching its severity and escalates
// severe ones to Sentry. Expected rejections such as validation, auth
// and rate-limit denials log at warn so real faults stay visible in
// the error stream.
func (h *Handler) Handle(ctx context.Context, err error) (string, bool) {
	if err == nil {
		return "", false
	}

	if ctx == nil {
		ctx = context.Background()
	}

	log := h.log
	if log == nil {
		log = slog.Default()
	}

	appErr := asAppError(err)

	attrs := []slog.Attr{
		slog.String("code", appErr.Code),
		slog.String("message", appErr.Message),
		slog.String("severity", string(appErr.Severity)),
		slog.Bool("retryable", appErr.Retryable),
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	log.LogAttrs(ctx, levelFor(appErr.Severity), "request error", attrs...)

	if h.sentryEnabled && (appErr.Severity == SeverityCritical || appErr.Severity == SeverityHigh) {
		h.sendToSentry(err, appErr)
	}

	userMessage := appErr.UserMessage
	if userMessage == "" {
		userMessage = genericUserMessage
	}

	return userMessage, appErr.Retryable
}

// asAppError normalizes any error into the taxonomy. Errors from
// outside it are treated as high-severity unknowns with the generic
// user message.
func asAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr
	}

	return &AppError{
		Code:        "E000",
		Message:     err.Error(),
		UserMessage: genericUserMessage,
		Severity:    SeverityHigh,
		Retryable:   false,
		cause:       err,
	}
}

func levelFor(severity Severity) slog.Level {
	switch severity {
	case SeverityLow:
		return slog.LevelWarn
	case SeverityMedium:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func (h *Handler) sendToSentry(err error, appErr *AppError) {
	sentry.WithScope(func(scope *sentry.Scope) {
		if appErr.Code != "" {
			scope.SetTag("code", appErr.Code)
		}
		if appErr.Severity != "" {
			scope.SetTag("severity", string(appErr.Severity))
		}

		sentry.CaptureException(err)
	})
}
