package querycache

import (
	"context"

	"github.com/goliatone/go-query-cache/cache"
)

// Query runs fn through the engine and returns its result as T. Cache hits
// come back from the codec as plain maps and slices and are converted.
func Query[T any](ctx context.Context, e *Engine, entity, operation string, args Args, fn func(ctx context.Context, args Args) (T, error)) (T, error) {
	result, err := e.Execute(ctx, entity, operation, args, func(ctx context.Context, args Args) (any, error) {
		return fn(ctx, args)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return cache.Convert[T](result)
}
