package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// With returns a new context whose logger carries the given fields.
func With(ctx context.Context, fields ...any) context.Context {
	return WithLogger(ctx, From(ctx).With(fields...))
}

func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger stored in context, or default if missing.
func From(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return LoggerWrapper()
}
