// Package logger configures log/slog as the process logger, with either a
// plain text handler or a sampled zap JSON core behind it.
package logger

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/trace"
)

var (
	mu  sync.RWMutex
	def *slog.Logger
)

// Init builds the handler for cfg and installs it as slog's default.
func Init(cfg Config) *slog.Logger {
	cfg = cfg.withDefaults()
	l := slog.New(newHandler(cfg))

	mu.Lock()
	def = l
	mu.Unlock()
	slog.SetDefault(l)
	return l
}

// L returns the configured logger, initializing a dev one on first use.
func L() *slog.Logger {
	mu.RLock()
	l := def
	mu.RUnlock()
	if l != nil {
		return l
	}
	return Init(Config{})
}

// Component returns L() tagged with a component name.
func Component(name string) *slog.Logger {
	return L().With(slog.String("component", name))
}

type ctxKey struct{}

// WithContext stores l in ctx for FromContext.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request-scoped logger or L().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return L()
}

// AttrsFromCtx returns trace_id and span_id of the active span, if any.
func AttrsFromCtx(ctx context.Context) []slog.Attr {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return nil
	}
	return []slog.Attr{
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	}
}
