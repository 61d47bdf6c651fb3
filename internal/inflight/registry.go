// Package inflight collapses concurrent executions that share a cache key.
package inflight

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// ProduceFn runs the underlying operation for a key.
type ProduceFn func(ctx context.Context) (any, error)

// Registry tracks pending executions by key. The first caller for a key
// runs the producer; callers arriving while it is in flight wait for and
// share its outcome. The entry is dropped as soon as the producer settles,
// whether it succeeded or failed.
//
// A Registry is owned by a single engine; it gives no guarantee across
// processes.
type Registry struct {
	group   singleflight.Group
	pending atomic.Int64
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// Run executes fn once per in flight key. shared reports whether the result
// was delivered to more than one caller.
func (r *Registry) Run(ctx context.Context, key string, fn ProduceFn) (result any, shared bool, err error) {
	result, err, shared = r.group.Do(key, func() (any, error) {
		r.pending.Add(1)
		defer r.pending.Add(-1)
		return fn(ctx)
	})
	return result, shared, err
}

// Pending returns the number of producers currently executing.
func (r *Registry) Pending() int {
	return int(r.pending.Load())
}
