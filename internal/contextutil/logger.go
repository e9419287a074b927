// Package contextutil carries request-scoped values through a context.
// The only value today is a *slog.Logger: HTTP middleware and Discord
// interaction handlers install one with their caller attributes attached,
// and downstream code retrieves it without threading a logger parameter.
package contextutil

import (
	"context"
	"log/slog"
)

type contextKey struct{}

var loggerKey contextKey

// WithLogger returns a context carrying the given logger. Passing nil
// returns the context unchanged.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext returns the logger installed by WithLogger, or
// slog.Default() when the context carries none.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
