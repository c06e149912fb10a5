package batchcache

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// Fetch is the typed form of Engine.Invoke. R is the source's natural
// result type, usually map[K]V or []V.
func Fetch[R any, K comparable, V any](ctx context.Context, e *Engine[K, V], method string, ids []K, fn func(ctx context.Context, ids Collection[K]) (R, error)) (R, error) {
	result, err := e.Invoke(ctx, method, ids, func(ctx context.Context, ids Collection[K]) (any, error) {
		return fn(ctx, ids)
	})
	return assertResult[R](method, result, err)
}

// FetchAll is the typed form of Engine.InvokeAll.
func FetchAll[R any, K comparable, V any](ctx context.Context, e *Engine[K, V], method string, fn func(ctx context.Context) (R, error)) (R, error) {
	result, err := e.InvokeAll(ctx, method, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	return assertResult[R](method, result, err)
}

func assertResult[R any](method string, result any, err error) (R, error) {
	var zero R
	if err != nil {
		return zero, err
	}
	typed, ok := result.(R)
	if !ok {
		return zero, newError(ErrReturnShapeMismatch, goerrors.CategoryBadInput,
			fmt.Sprintf("result of type %T is not %T", result, zero),
			map[string]any{"method": method})
	}
	return typed, nil
}
