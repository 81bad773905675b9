// Package wlog centralizes the zap logger construction so every
// component logs with the same encoder config and level policy,
// the way wippyai-wasm-runtime wires zap through its runtime wrapper.
package wlog

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// NewProduction returns a JSON-encoded, info-level logger suitable for
// embedding wami in a service.
func NewProduction() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// NewDevelopment returns a human-readable, debug-level logger suitable for
// cmd/wami and local debugging.
func NewDevelopment() *zap.Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// WithLogger returns a copy of ctx carrying l, retrievable with FromContext.
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stashed in ctx by WithLogger, or a no-op
// logger if none was set — callers never need a nil check.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}
