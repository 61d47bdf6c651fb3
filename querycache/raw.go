package querycache

import (
	"context"

	"github.com/goliatone/go-query-cache/cache"
)

// Entity names used to key raw queries.
const (
	RawEntity       = "$queryRaw"
	RawUnsafeEntity = "$queryRawUnsafe"
	// RawOperation labels raw executions in metrics in place of the text hash.
	RawOperation = "raw"
)

// RawQuery is an opaque query template with bound parameters.
type RawQuery struct {
	Text   string
	Params []any
	// Cache defaults to Cache() when absent. Use NoCache() to disable.
	Cache   CacheDirective
	Uncache UncacheDirective
}

// RawFunc executes a raw query.
type RawFunc func(ctx context.Context, text string, params ...any) (any, error)

// QueryRaw runs a parameterised raw query. The key hashes the query text
// and the bound parameters. No invalidation tracing applies.
func (e *Engine) QueryRaw(ctx context.Context, q RawQuery, run RawFunc) (any, error) {
	if run == nil {
		return nil, ErrNilQuery
	}
	params := q.Params
	if params == nil {
		params = []any{}
	}
	return e.run(ctx, call{
		entity:    RawEntity,
		operation: textHash(q.Text),
		args:      Args{"params": params},
		cache:     rawDirective(q.Cache),
		uncache:   q.Uncache,
		raw:       true,
		query: func(ctx context.Context, _ Args) (any, error) {
			return run(ctx, q.Text, q.Params...)
		},
	})
}

// QueryRawUnsafe runs a query whose text already embeds its values. The key
// hashes the text only.
func (e *Engine) QueryRawUnsafe(ctx context.Context, text string, cacheDirective CacheDirective, uncache UncacheDirective, run RawFunc) (any, error) {
	if run == nil {
		return nil, ErrNilQuery
	}
	return e.run(ctx, call{
		entity:    RawUnsafeEntity,
		operation: textHash(text),
		args:      Args{},
		cache:     rawDirective(cacheDirective),
		uncache:   uncache,
		raw:       true,
		query: func(ctx context.Context, _ Args) (any, error) {
			return run(ctx, text)
		},
	})
}

func rawDirective(d CacheDirective) CacheDirective {
	if d.Kind() == CacheAbsent {
		return Cache()
	}
	return d
}

// textHash reduces query text to a key segment free of separators.
func textHash(text string) string {
	return cache.MD5Hasher{}.Sum([]byte(text))
}
