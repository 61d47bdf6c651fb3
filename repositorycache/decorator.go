package repositorycache

import (
	"context"
	"reflect"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/querycache"
)

// Interface assertion to ensure CachedRepository implements Repository[T]
var _ repository.Repository[any] = (*CachedRepository[any])(nil)

// Operation names the decorator reports to the engine.
const (
	opFindFirst  = "findFirst"
	opFindUnique = "findUnique"
	opFindMany   = "findMany"
	opCount      = "count"
	opCreate     = "create"
	opCreateMany = "createMany"
	opUpdate     = "update"
	opUpdateMany = "updateMany"
	opUpsert     = "upsert"
	opDelete     = "delete"
	opDeleteMany = "deleteMany"
)

// listResult wraps the tuple result from List operations for caching
type listResult[T any] struct {
	Records []T `json:"records"`
	Total   int `json:"total"`
}

// CachedRepository decorates a base repository so that every call goes
// through a querycache.Engine: reads are served from the cache store,
// writes report their payload for invalidation.
type CachedRepository[T any] struct {
	base     repository.Repository[T]
	engine   *querycache.Engine
	entity   string
	db       *bun.DB
	defaults querycache.CacheDirective
}

// Option configures a CachedRepository.
type Option func(*options)

type options struct {
	entity   string
	db       *bun.DB
	defaults querycache.CacheDirective
	explicit bool
}

// WithEntity overrides the entity name, which defaults to the name of T.
func WithEntity(name string) Option {
	return func(o *options) {
		o.entity = name
	}
}

// WithDB renders select criteria to SQL with db so that reads filtered by
// criteria get precise keys. Without it, reads that carry criteria are
// only cached under an explicit key from the context.
func WithDB(db *bun.DB) Option {
	return func(o *options) {
		o.db = db
	}
}

// WithDefaultDirective sets the directive applied to reads when the context
// carries none. Defaults to querycache.Cache().
func WithDefaultDirective(d querycache.CacheDirective) Option {
	return func(o *options) {
		o.defaults = d
		o.explicit = true
	}
}

// New creates a new CachedRepository that wraps the base repository.
func New[T any](base repository.Repository[T], engine *querycache.Engine, opts ...Option) *CachedRepository[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.entity == "" {
		o.entity = EntityName[T]()
	}
	if !o.explicit {
		o.defaults = querycache.Cache()
	}

	return &CachedRepository[T]{
		base:     base,
		engine:   engine,
		entity:   o.entity,
		db:       o.db,
		defaults: o.defaults,
	}
}

// EntityName returns the name used for T: its type name, pointers removed.
// It matches the entity names of invalidation.BunGraph.
func EntityName[T any]() string {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	for typ.Kind() == reflect.Ptr || typ.Kind() == reflect.Slice {
		typ = typ.Elem()
	}
	return typ.Name()
}

// Entity returns the entity name reported to the engine.
func (c *CachedRepository[T]) Entity() string {
	return c.entity
}

// Get retrieves a single record using the provided criteria, with caching
func (c *CachedRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	return read(ctx, c, opFindFirst, nil, criteria, func(ctx context.Context) (T, error) {
		return c.base.Get(ctx, criteria...)
	})
}

// GetByID retrieves a record by ID with optional criteria, with caching
func (c *CachedRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	return read(ctx, c, opFindUnique, querycache.Args{"id": id}, criteria, func(ctx context.Context) (T, error) {
		return c.base.GetByID(ctx, id, criteria...)
	})
}

// GetByIdentifier retrieves a record by identifier with optional criteria, with caching
func (c *CachedRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	return read(ctx, c, opFindUnique, querycache.Args{"identifier": identifier}, criteria, func(ctx context.Context) (T, error) {
		return c.base.GetByIdentifier(ctx, identifier, criteria...)
	})
}

// List retrieves multiple records using the provided criteria, with caching
func (c *CachedRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	res, err := read(ctx, c, opFindMany, nil, criteria, func(ctx context.Context) (listResult[T], error) {
		records, total, err := c.base.List(ctx, criteria...)
		return listResult[T]{Records: records, Total: total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return res.Records, res.Total, nil
}

// Count returns the number of records matching the criteria, with caching
func (c *CachedRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	return read(ctx, c, opCount, nil, criteria, func(ctx context.Context) (int, error) {
		return c.base.Count(ctx, criteria...)
	})
}

// Create creates a new record and reports it as the write payload.
func (c *CachedRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	return write(ctx, c, opCreate, querycache.Args{"data": record}, func(ctx context.Context) (T, error) {
		return c.base.Create(ctx, record, criteria...)
	})
}

// CreateTx creates a new record within a transaction
func (c *CachedRepository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	return write(ctx, c, opCreate, querycache.Args{"data": record}, func(ctx context.Context) (T, error) {
		return c.base.CreateTx(ctx, tx, record, criteria...)
	})
}

// CreateMany creates multiple records
func (c *CachedRepository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	return write(ctx, c, opCreateMany, querycache.Args{"data": records}, func(ctx context.Context) ([]T, error) {
		return c.base.CreateMany(ctx, records, criteria...)
	})
}

// CreateManyTx creates multiple records within a transaction
func (c *CachedRepository[T]) CreateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	return write(ctx, c, opCreateMany, querycache.Args{"data": records}, func(ctx context.Context) ([]T, error) {
		return c.base.CreateManyTx(ctx, tx, records, criteria...)
	})
}

// GetOrCreate gets a record or creates it if it doesn't exist. It is
// reported as a create since it may insert.
func (c *CachedRepository[T]) GetOrCreate(ctx context.Context, record T) (T, error) {
	return write(ctx, c, opCreate, querycache.Args{"data": record}, func(ctx context.Context) (T, error) {
		return c.base.GetOrCreate(ctx, record)
	})
}

// GetOrCreateTx gets a record or creates it if it doesn't exist within a transaction
func (c *CachedRepository[T]) GetOrCreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	return write(ctx, c, opCreate, querycache.Args{"data": record}, func(ctx context.Context) (T, error) {
		return c.base.GetOrCreateTx(ctx, tx, record)
	})
}

// Update updates a record
func (c *CachedRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return write(ctx, c, opUpdate, querycache.Args{"data": record}, func(ctx context.Context) (T, error) {
		return c.base.Update(ctx, record, criteria...)
	})
}

// UpdateTx updates a record within a transaction
func (c *CachedRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return write(ctx, c, opUpdate, querycache.Args{"data": record}, func(ctx context.Context) (T, error) {
		return c.base.UpdateTx(ctx, tx, record, criteria...)
	})
}

// UpdateMany updates multiple records
func (c *CachedRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return write(ctx, c, opUpdateMany, querycache.Args{"data": records}, func(ctx context.Context) ([]T, error) {
		return c.base.UpdateMany(ctx, records, criteria...)
	})
}

// UpdateManyTx updates multiple records within a transaction
func (c *CachedRepository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return write(ctx, c, opUpdateMany, querycache.Args{"data": records}, func(ctx context.Context) ([]T, error) {
		return c.base.UpdateManyTx(ctx, tx, records, criteria...)
	})
}

// Upsert inserts or updates a record
func (c *CachedRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return write(ctx, c, opUpsert, upsertArgs(record), func(ctx context.Context) (T, error) {
		return c.base.Upsert(ctx, record, criteria...)
	})
}

// UpsertTx inserts or updates a record within a transaction
func (c *CachedRepository[T]) UpsertTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return write(ctx, c, opUpsert, upsertArgs(record), func(ctx context.Context) (T, error) {
		return c.base.UpsertTx(ctx, tx, record, criteria...)
	})
}

// UpsertMany inserts or updates multiple records
func (c *CachedRepository[T]) UpsertMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return write(ctx, c, opUpsert, upsertArgs(records), func(ctx context.Context) ([]T, error) {
		return c.base.UpsertMany(ctx, records, criteria...)
	})
}

// UpsertManyTx inserts or updates multiple records within a transaction
func (c *CachedRepository[T]) UpsertManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return write(ctx, c, opUpsert, upsertArgs(records), func(ctx context.Context) ([]T, error) {
		return c.base.UpsertManyTx(ctx, tx, records, criteria...)
	})
}

// Delete deletes a record
func (c *CachedRepository[T]) Delete(ctx context.Context, record T) error {
	return exec(ctx, c, opDelete, querycache.Args{"where": record}, func(ctx context.Context) error {
		return c.base.Delete(ctx, record)
	})
}

// DeleteTx deletes a record within a transaction
func (c *CachedRepository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	return exec(ctx, c, opDelete, querycache.Args{"where": record}, func(ctx context.Context) error {
		return c.base.DeleteTx(ctx, tx, record)
	})
}

// DeleteMany deletes multiple records based on criteria
func (c *CachedRepository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	return exec(ctx, c, opDeleteMany, querycache.Args{}, func(ctx context.Context) error {
		return c.base.DeleteMany(ctx, criteria...)
	})
}

// DeleteManyTx deletes multiple records based on criteria within a transaction
func (c *CachedRepository[T]) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	return exec(ctx, c, opDeleteMany, querycache.Args{}, func(ctx context.Context) error {
		return c.base.DeleteManyTx(ctx, tx, criteria...)
	})
}

// DeleteWhere deletes records based on criteria
func (c *CachedRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	return exec(ctx, c, opDeleteMany, querycache.Args{}, func(ctx context.Context) error {
		return c.base.DeleteWhere(ctx, criteria...)
	})
}

// DeleteWhereTx deletes records based on criteria within a transaction
func (c *CachedRepository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	return exec(ctx, c, opDeleteMany, querycache.Args{}, func(ctx context.Context) error {
		return c.base.DeleteWhereTx(ctx, tx, criteria...)
	})
}

// ForceDelete force deletes a record (bypassing soft delete)
func (c *CachedRepository[T]) ForceDelete(ctx context.Context, record T) error {
	return exec(ctx, c, opDelete, querycache.Args{"where": record}, func(ctx context.Context) error {
		return c.base.ForceDelete(ctx, record)
	})
}

// ForceDeleteTx force deletes a record within a transaction (bypassing soft delete)
func (c *CachedRepository[T]) ForceDeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	return exec(ctx, c, opDelete, querycache.Args{"where": record}, func(ctx context.Context) error {
		return c.base.ForceDeleteTx(ctx, tx, record)
	})
}

// GetTx retrieves a single record within a transaction, bypassing the cache
func (c *CachedRepository[T]) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetTx(ctx, tx, criteria...)
}

// GetByIDTx retrieves a record by ID within a transaction, bypassing the cache
func (c *CachedRepository[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetByIDTx(ctx, tx, id, criteria...)
}

// ListTx retrieves multiple records within a transaction, bypassing the cache
func (c *CachedRepository[T]) ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]T, int, error) {
	return c.base.ListTx(ctx, tx, criteria...)
}

// CountTx counts records within a transaction, bypassing the cache
func (c *CachedRepository[T]) CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error) {
	return c.base.CountTx(ctx, tx, criteria...)
}

// GetByIdentifierTx retrieves a record by identifier within a transaction, bypassing the cache
func (c *CachedRepository[T]) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetByIdentifierTx(ctx, tx, identifier, criteria...)
}

// Raw executes a raw SQL query. It is cached through the engine only when
// the context carries a cache or uncache directive.
func (c *CachedRepository[T]) Raw(ctx context.Context, sql string, args ...any) ([]T, error) {
	d, hasCache := cacheDirectiveFrom(ctx)
	u, hasUncache := uncacheDirectiveFrom(ctx)
	if !hasCache && !hasUncache {
		return c.base.Raw(ctx, sql, args...)
	}
	if !hasCache {
		d = querycache.NoCache()
	}

	result, err := c.engine.QueryRaw(ctx, querycache.RawQuery{Text: sql, Params: args, Cache: d, Uncache: u},
		func(ctx context.Context, text string, params ...any) (any, error) {
			return c.base.Raw(ctx, text, params...)
		})
	if err != nil {
		return nil, err
	}
	return cache.Convert[[]T](result)
}

// RawTx executes a raw SQL query within a transaction, bypassing the cache
func (c *CachedRepository[T]) RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]T, error) {
	return c.base.RawTx(ctx, tx, sql, args...)
}

// Handlers returns the model handlers from the base repository
func (c *CachedRepository[T]) Handlers() repository.ModelHandlers[T] {
	return c.base.Handlers()
}

func upsertArgs(payload any) querycache.Args {
	return querycache.Args{"create": payload, "update": payload}
}

// readDirective picks the directive for a read: the context wins over the
// repository default. Reads with criteria that cannot be rendered to SQL
// are only cached under an explicit key.
func (c *CachedRepository[T]) readDirective(ctx context.Context, criteria []repository.SelectCriteria) (querycache.CacheDirective, string) {
	d, ok := cacheDirectiveFrom(ctx)
	if !ok {
		d = c.defaults
	}
	if len(criteria) == 0 {
		return d, ""
	}

	if sql, rendered := c.renderCriteria(criteria); rendered {
		return d, sql
	}
	switch d.Kind() {
	case querycache.CacheLiteralKey, querycache.CacheStructured:
		return d, ""
	}
	return querycache.NoCache(), ""
}

// renderCriteria applies criteria to a select on T and returns the SQL.
func (c *CachedRepository[T]) renderCriteria(criteria []repository.SelectCriteria) (string, bool) {
	if c.db == nil {
		return "", false
	}
	q := c.db.NewSelect().Model((*T)(nil))
	for _, criterion := range criteria {
		q = criterion(q)
	}
	b, err := q.AppendQuery(c.db.Formatter(), nil)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func read[T, R any](ctx context.Context, c *CachedRepository[T], operation string, args querycache.Args, criteria []repository.SelectCriteria, fetch func(context.Context) (R, error)) (R, error) {
	d, sql := c.readDirective(ctx, criteria)

	payload := querycache.Args{}
	for k, v := range args {
		payload[k] = v
	}
	if sql != "" {
		payload["criteria"] = sql
	}
	payload[querycache.CacheArg] = d
	if u, ok := uncacheDirectiveFrom(ctx); ok {
		payload[querycache.UncacheArg] = u
	}

	result, err := c.engine.Execute(ctx, c.entity, operation, payload, func(ctx context.Context, _ querycache.Args) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return cache.Convert[R](result)
}

func write[T, R any](ctx context.Context, c *CachedRepository[T], operation string, args querycache.Args, run func(context.Context) (R, error)) (R, error) {
	if d, ok := cacheDirectiveFrom(ctx); ok {
		args[querycache.CacheArg] = d
	}
	if u, ok := uncacheDirectiveFrom(ctx); ok {
		args[querycache.UncacheArg] = u
	}

	result, err := c.engine.Execute(ctx, c.entity, operation, args, func(ctx context.Context, _ querycache.Args) (any, error) {
		return run(ctx)
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return cache.Convert[R](result)
}

func exec[T any](ctx context.Context, c *CachedRepository[T], operation string, args querycache.Args, run func(context.Context) error) error {
	_, err := write(ctx, c, operation, args, func(ctx context.Context) (any, error) {
		return nil, run(ctx)
	})
	return err
}
