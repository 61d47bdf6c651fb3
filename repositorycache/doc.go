// Package repositorycache provides cached repository decorators for go-repository-bun.
//
// # Overview
//
// CachedRepository[T] wraps a repository.Repository[T] and routes every call
// through a querycache.Engine. Each repository method is reported to the
// engine as an entity operation:
//
//   - Get: findFirst
//   - GetByID, GetByIdentifier: findUnique
//   - List: findMany (records and total cached as a unit)
//   - Count: count
//   - Create, GetOrCreate: create
//   - CreateMany: createMany
//   - Update: update
//   - UpdateMany: updateMany
//   - Upsert, UpsertMany: upsert
//   - Delete, ForceDelete: delete
//   - DeleteMany, DeleteWhere: deleteMany
//
// The entity name is the type name of T, the same name invalidation.BunGraph
// uses, so a write that carries related models invalidates cached reads of
// those models too when the engine runs with auto invalidation.
//
// # Basic Usage
//
//	engine, err := querycache.New(store, querycache.WithRelationGraph(graph))
//	if err != nil {
//		return err
//	}
//	repo := repositorycache.New[User](base, engine, repositorycache.WithDB(db))
//
//	user, err := repo.GetByID(ctx, "user-123")
//	active, total, err := repo.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
//		return q.Where("active = ?", true)
//	})
//
// # Directives
//
// Reads are cached with querycache.Cache() unless WithDefaultDirective says
// otherwise. A single call can override it through the context:
//
//	ctx = repositorycache.WithCache(ctx, querycache.CacheFor(time.Minute))
//	ctx = repositorycache.WithoutCache(ctx)
//	ctx = repositorycache.WithUncache(ctx, querycache.Uncache("users:all"))
//
// Select criteria are functions and cannot be hashed reliably. With WithDB
// they are rendered to SQL and the SQL becomes part of the key. Without it,
// reads that carry criteria are executed uncached unless the context names
// an explicit key.
//
// # Transactions and Raw SQL
//
// Reads inside transactions (*Tx methods) bypass the cache. Writes inside
// transactions still report their payload so stale entries are dropped.
// Raw is cached only when the context carries a directive; RawTx always
// bypasses the cache.
//
// # Error Handling
//
// Errors from the base repository are propagated unchanged. Cache store
// errors on reads and writes surface to the caller; failures while
// deleting entries are logged by the engine and ignored.
package repositorycache
