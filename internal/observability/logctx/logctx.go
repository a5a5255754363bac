// Package logctx carries the logger of the current request or event delivery on a
// context, so use cases log with the caller's correlation fields.
package logctx

import (
	"context"
	"slices"

	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"

	"go.opentelemetry.io/otel/trace"
)

type loggerKey struct{}

func With(ctx context.Context, logger observability.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

func From(ctx context.Context) observability.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(observability.Logger)
	return logger
}

// FromOr prefers the context logger over fallback.
func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if logger := From(ctx); logger != nil {
		return logger
	}
	return fallback
}

// Scope stores base, extended with fields and the ids of the span active in ctx.
// A nil base falls back to the no-op logger.
func Scope(ctx context.Context, base observability.Logger, fields ...observability.Field) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}
	return With(ctx, base.With(slices.Concat(fields, TraceFields(ctx))...))
}

// TraceFields returns trace_id and span_id for the span in ctx, or nothing.
func TraceFields(ctx context.Context) []observability.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []observability.Field{
		observability.F("trace_id", sc.TraceID().String()),
		observability.F("span_id", sc.SpanID().String()),
	}
}
