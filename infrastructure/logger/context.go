package logger

import "context"

type ctxKey struct{}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or fallback when there is none.
// A nil fallback yields a no-op logger.
func FromContext(ctx context.Context, fallback Logger) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	if fallback == nil {
		return NewNop()
	}
	return fallback
}
