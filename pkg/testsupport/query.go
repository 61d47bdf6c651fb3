package testsupport

import (
	"context"
	"sync"
	"sync/atomic"
)

// CountingQuery is an underlying operation fake. It counts invocations and
// remembers the arguments of the last one.
type CountingQuery struct {
	// Result is returned by every call unless Fn is set.
	Result any
	// Err fails every call.
	Err error
	// Fn computes the result from the arguments.
	Fn func(args map[string]any) (any, error)
	// Gate, when set, blocks each call until it is closed.
	Gate chan struct{}

	calls atomic.Int64
	mu    sync.Mutex
	last  map[string]any
}

// Run executes the fake.
func (q *CountingQuery) Run(ctx context.Context, args map[string]any) (any, error) {
	q.calls.Add(1)
	q.mu.Lock()
	q.last = args
	q.mu.Unlock()

	if q.Gate != nil {
		select {
		case <-q.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if q.Err != nil {
		return nil, q.Err
	}
	if q.Fn != nil {
		return q.Fn(args)
	}
	return q.Result, nil
}

// Calls returns the number of invocations.
func (q *CountingQuery) Calls() int {
	return int(q.calls.Load())
}

// LastArgs returns the arguments of the latest invocation.
func (q *CountingQuery) LastArgs() map[string]any {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.last
}
