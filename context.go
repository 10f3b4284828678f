package pipeline

import "context"

type contextKey[T any] struct{}

// SetValue stores a typed value in ctx. For use in middleware.
func SetValue[T any](ctx context.Context, val T) context.Context {
	return context.WithValue(ctx, contextKey[T]{}, val)
}

// GetValue retrieves a typed value stored by SetValue.
func GetValue[T any](ctx context.Context) (T, bool) {
	val, ok := ctx.Value(contextKey[T]{}).(T)
	return val, ok
}
