// Package logger configures the process-wide slog logger and derives
// component and build-run scoped loggers from it.
package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

type contextKey struct{}

// Setup installs the default slog logger writing to w.
func Setup(w io.Writer, level string, format string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithRunID stores a build run ID in ctx.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, contextKey{}, runID)
}

// RunID returns the build run ID stored in ctx, if any.
func RunID(ctx context.Context) string {
	runID, _ := ctx.Value(contextKey{}).(string)
	return runID
}

// FromContext returns the default logger annotated with the run ID in ctx.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if runID := RunID(ctx); runID != "" {
		logger = logger.With("run_id", runID)
	}
	return logger
}

func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
