package querycache

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/goliatone/go-query-cache/cache"
)

const (
	reasonUncache = "uncache"
	reasonAuto    = "auto"
)

// sweepEvery is the number of tracked writes between sweeps of expired
// index entries.
const sweepEvery = 1024

// afterQuery runs once per executed call, after the operation settled and
// before its result is written to the store.
func (e *Engine) afterQuery(ctx context.Context, c call, result any) {
	if keys := c.uncache.resolve(e.keys, result); len(keys) > 0 {
		e.metrics.deleted(reasonUncache, e.deleteKeys(ctx, keys))
	}

	if e.cfg.UseAutoUncache && c.write {
		entities := e.tracer.AffectedEntities(c.entity, c.operation, c.args)
		e.InvalidateEntities(ctx, entities...)
	}
}

// InvalidateEntities deletes every entry that depends on one of entities:
// entries the engine tagged when writing them, plus keys enumerated from the
// store whose path segments name the entity. Store errors are logged and
// otherwise ignored. It returns the number of keys deleted.
func (e *Engine) InvalidateEntities(ctx context.Context, entities ...string) int {
	keys := make(map[string]struct{})
	for _, entity := range entities {
		for _, key := range e.entityKeys(ctx, entity) {
			keys[key] = struct{}{}
		}
	}
	if len(keys) == 0 {
		return 0
	}

	list := make([]string, 0, len(keys))
	for key := range keys {
		list = append(list, key)
	}
	n := e.deleteKeys(ctx, list)
	e.metrics.deleted(reasonAuto, n)

	e.logger.Debug("invalidated entities",
		zap.Strings("entities", entities),
		zap.Int("keys", n),
	)
	return n
}

func (e *Engine) entityKeys(ctx context.Context, entity string) []string {
	var out []string

	if tagged, ok := e.index.LoadAndDelete(entity); ok {
		tagged.Range(func(key string, _ time.Time) bool {
			out = append(out, key)
			return true
		})
	}

	enum, ok := e.store.(cache.KeyEnumerator)
	if !ok {
		return out
	}
	keys, err := enum.Keys(ctx, entity)
	if err != nil {
		e.metrics.cleanupFailed()
		e.logger.Warn("enumerating cache keys failed",
			zap.String("entity", entity),
			zap.Error(err),
		)
		return out
	}
	for _, key := range keys {
		if cache.KeyMentions(key, entity) {
			out = append(out, key)
		}
	}
	return out
}

// deleteKeys removes keys from the store, swallowing failures, and returns
// how many deletes succeeded.
func (e *Engine) deleteKeys(ctx context.Context, keys []string) int {
	n := 0
	for _, key := range keys {
		if err := e.store.Delete(ctx, key); err != nil {
			e.metrics.cleanupFailed()
			e.logger.Warn("deleting cache key failed",
				zap.String("key", key),
				zap.Error(err),
			)
			continue
		}
		e.untrack(key)
		n++
	}
	return n
}

// track records that key holds data derived from entity until deadline.
// A zero deadline means the entry lives until it is deleted or missed.
func (e *Engine) track(key, entity string, deadline time.Time) {
	keys, _ := e.index.LoadOrCompute(entity, func() *xsync.MapOf[string, time.Time] {
		return xsync.NewMapOf[string, time.Time]()
	})
	keys.Store(key, deadline)

	if e.tracks.Add(1)%sweepEvery == 0 {
		e.sweepTracked()
	}
}

// untrack drops key from every entity it was tagged with.
func (e *Engine) untrack(key string) {
	if !e.cfg.TrackKeys {
		return
	}
	e.index.Range(func(_ string, keys *xsync.MapOf[string, time.Time]) bool {
		keys.Delete(key)
		return true
	})
}

// sweepTracked drops index entries whose deadline has passed.
func (e *Engine) sweepTracked() {
	now := e.now()
	e.index.Range(func(_ string, keys *xsync.MapOf[string, time.Time]) bool {
		keys.Range(func(key string, deadline time.Time) bool {
			if expired(deadline, now) {
				keys.Delete(key)
			}
			return true
		})
		return true
	})
}

// TrackedKeys returns the unexpired keys currently tagged with entity.
func (e *Engine) TrackedKeys(entity string) []string {
	keys, ok := e.index.Load(entity)
	if !ok {
		return nil
	}
	now := e.now()
	var out []string
	keys.Range(func(key string, deadline time.Time) bool {
		if !expired(deadline, now) {
			out = append(out, key)
		}
		return true
	})
	return out
}

func expired(deadline, now time.Time) bool {
	return !deadline.IsZero() && !now.Before(deadline)
}
