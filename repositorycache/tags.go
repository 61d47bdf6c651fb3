package repositorycache

import (
	"context"

	"github.com/goliatone/go-query-cache/querycache"
)

type cacheDirectiveKey struct{}

type uncacheDirectiveKey struct{}

// WithCache attaches a cache directive to the context. It overrides the
// repository default for calls made with the context.
func WithCache(ctx context.Context, d querycache.CacheDirective) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, cacheDirectiveKey{}, d)
}

// WithoutCache disables caching for calls made with the context.
func WithoutCache(ctx context.Context) context.Context {
	return WithCache(ctx, querycache.NoCache())
}

// WithUncache attaches keys to delete once the call completes.
func WithUncache(ctx context.Context, d querycache.UncacheDirective) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if d.Kind() == querycache.UncacheAbsent {
		return ctx
	}
	return context.WithValue(ctx, uncacheDirectiveKey{}, d)
}

func cacheDirectiveFrom(ctx context.Context) (querycache.CacheDirective, bool) {
	if ctx == nil {
		return querycache.CacheDirective{}, false
	}
	d, ok := ctx.Value(cacheDirectiveKey{}).(querycache.CacheDirective)
	return d, ok
}

func uncacheDirectiveFrom(ctx context.Context) (querycache.UncacheDirective, bool) {
	if ctx == nil {
		return querycache.UncacheDirective{}, false
	}
	d, ok := ctx.Value(uncacheDirectiveKey{}).(querycache.UncacheDirective)
	return d, ok
}
