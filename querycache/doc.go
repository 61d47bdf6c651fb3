// Package querycache decides, per data-access call, whether a result is read
// from a cache store, executed and stored, or executed and used to
// invalidate stored entries.
//
// A call names an entity, an operation and an argument payload. Two reserved
// arguments control caching:
//
//	args := querycache.Args{
//		"where": map[string]any{"id": 1},
//		"cache": querycache.CacheFor(time.Minute),
//		"uncache": []string{"users:list"},
//	}
//	user, err := engine.Execute(ctx, "user", "findUnique", args, findUser)
//
// Operations outside Config.Operations pass through untouched. For reads,
// the store is consulted first; on a miss the operation runs once per key
// even when called concurrently (Config.UseDeduplication). Writes are never
// pre-read. With Config.UseAutoUncache, a write deletes cached entries of
// every entity its payload touches, as reported by the invalidation tracer.
//
// Cached values are codec envelopes. A hit is returned as the decoded tree
// of maps and slices; use Query to convert it back to a concrete type.
package querycache
