// Package logger builds the application slog.Logger from
// configuration: stdout or rotated-file output, sensitive-attribute
// masking, and optional Sentry fan-out for errors.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	slogsentry "github.com/samber/slog-sentry/v2"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/friendix-ai/engagement-engine/pkg/config"
)

const flushTimeout = 2 * time.Second

// New constructs the application logger per config. When Sentry is
// enabled the DSN must already be initialized via sentry.Init.
func New(cfg config.Config) *slog.Logger {
	var out io.Writer = os.Stdout
	if cfg.Logger.File.Enabled && cfg.Logger.File.Path != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.Logger.File.Path,
			MaxSize:    cfg.Logger.File.MaxSizeMB,
			MaxBackups: cfg.Logger.File.MaxBackups,
			MaxAge:     cfg.Logger.File.MaxAgeDays,
			Compress:   true,
		})
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Logger.Level)}

	var base slog.Handler
	if strings.EqualFold(cfg.Logger.Format, "json") {
		base = slog.NewJSONHandler(out, opts)
	} else {
		base = slog.NewTextHandler(out, opts)
	}

	handlers := []slog.Handler{NewMaskingHandler(base)}

	if cfg.Sentry.Enabled {
		handlers = append(handlers, slogsentry.Option{
			Level: slog.LevelError,
		}.NewSentryHandler())
	}

	if len(handlers) == 1 {
		return slog.New(handlers[0])
	}

	return slog.New(newFanoutHandler(handlers...))
}

// InitSentry configures the Sentry SDK when enabled. The returned
// flush func is safe to defer even when Sentry is off.
func InitSentry(cfg config.Config) (func(), error) {
	if !cfg.Sentry.Enabled {
		return func() {}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.Sentry.DSN,
		Environment: cfg.AppEnv,
	})
	if err != nil {
		return func() {}, err
	}

	return func() { sentry.Flush(flushTimeout) }, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
