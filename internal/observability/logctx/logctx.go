// Package logctx carries the request- or event-scoped logger in a context.
package logctx

import (
	"context"

	"github.com/Zhima-Mochi/kiosk-orders/internal/observability"
)

type loggerKey struct{}

func With(ctx context.Context, logger observability.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// From returns the scoped logger, or nil.
func From(ctx context.Context) observability.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(observability.Logger)
	return logger
}

func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if logger := From(ctx); logger != nil {
		return logger
	}
	return fallback
}

// Enrich stores a logger with extra fields, built on the scoped logger when
// there is one and on fallback otherwise.
func Enrich(ctx context.Context, fallback observability.Logger, fields ...observability.Field) context.Context {
	base := FromOr(ctx, fallback)
	if base == nil || len(fields) == 0 {
		return ctx
	}
	return With(ctx, base.With(fields...))
}
