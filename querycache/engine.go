package querycache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/internal/inflight"
	"github.com/goliatone/go-query-cache/invalidation"
)

// ErrNilQuery is returned when Execute is called without an operation.
var ErrNilQuery = errors.New("querycache: nil query function")

// Args is the argument payload of one intercepted call.
type Args map[string]any

// QueryFunc runs the underlying operation with directives already removed
// from args.
type QueryFunc func(ctx context.Context, args Args) (any, error)

// Engine decides, per call, whether to serve from the store, execute the
// underlying operation, populate the store and invalidate entries.
type Engine struct {
	store    cache.Store
	keys     cache.KeyComposer
	codec    *cache.Codec
	graph    invalidation.RelationGraph
	tracer   *invalidation.Tracer
	inflight *inflight.Registry
	index    *xsync.MapOf[string, *xsync.MapOf[string, time.Time]]
	tracks   atomic.Int64
	now      func() time.Time
	cfg      Config
	logger   *zap.Logger
	metrics  *Metrics
}

// Option customises an Engine.
type Option func(*Engine)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRelationGraph sets the schema metadata used to trace writes.
func WithRelationGraph(graph invalidation.RelationGraph) Option {
	return func(e *Engine) {
		e.graph = graph
	}
}

// WithKeyComposer overrides the key composer.
func WithKeyComposer(keys cache.KeyComposer) Option {
	return func(e *Engine) {
		if keys != nil {
			e.keys = keys
		}
	}
}

// WithCodec overrides the codec built from Config.TypePrefixes.
func WithCodec(codec *cache.Codec) Option {
	return func(e *Engine) {
		e.codec = codec
	}
}

// WithClock replaces the clock used to expire tracked keys.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithMetrics records engine decisions in m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an Engine on top of store.
func New(store cache.Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("querycache: store is required")
	}

	e := &Engine{
		store:    store,
		keys:     cache.NewDefaultKeyComposer(),
		cfg:      DefaultConfig(),
		logger:   zap.NewNop(),
		inflight: inflight.New(),
		index:    xsync.NewMapOf[string, *xsync.MapOf[string, time.Time]](),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "querycache: invalid config")
	}
	if e.codec == nil {
		e.codec = cache.NewCodec(e.cfg.TypePrefixes)
	}
	e.tracer = invalidation.NewTracer(e.graph, invalidation.WithMaxDepth(e.cfg.MaxTraceDepth))

	return e, nil
}

// Store returns the configured cache store.
func (e *Engine) Store() cache.Store {
	return e.store
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Pending reports how many deduplicated executions are in flight.
func (e *Engine) Pending() int {
	return e.inflight.Pending()
}

// call is one resolved invocation.
type call struct {
	entity    string
	operation string
	args      Args
	write     bool
	cache     CacheDirective
	uncache   UncacheDirective
	query     QueryFunc
	raw       bool
}

// Execute runs one intercepted call. Operations outside the cacheable table
// pass through untouched. Otherwise the "cache" and "uncache" arguments are
// parsed and removed before query is invoked.
func (e *Engine) Execute(ctx context.Context, entity, operation string, args Args, query QueryFunc) (any, error) {
	if query == nil {
		return nil, ErrNilQuery
	}
	if !e.cfg.Operations.IsCacheable(operation) {
		return query(ctx, args)
	}

	stripped, cacheRaw, uncacheRaw := splitArgs(args)
	c := call{
		entity:    entity,
		operation: operation,
		args:      stripped,
		write:     e.cfg.Operations.IsWrite(operation),
		cache:     e.parseCache(entity, operation, cacheRaw),
		uncache:   e.parseUncache(entity, operation, uncacheRaw),
		query:     query,
	}
	return e.run(ctx, c)
}

func (e *Engine) parseCache(entity, operation string, raw any) CacheDirective {
	d, ok := ParseCacheDirective(raw)
	if !ok {
		e.logger.Debug("ignoring malformed cache directive",
			zap.String("entity", entity),
			zap.String("operation", operation),
			zap.Any("directive", raw),
		)
	}
	return d
}

func (e *Engine) parseUncache(entity, operation string, raw any) UncacheDirective {
	d, ok := ParseUncacheDirective(raw)
	if !ok {
		e.logger.Debug("ignoring malformed uncache directive",
			zap.String("entity", entity),
			zap.String("operation", operation),
			zap.Any("directive", raw),
		)
	}
	return d
}

func (e *Engine) run(ctx context.Context, c call) (any, error) {
	if !c.cache.Enabled() {
		result, err := e.execute(ctx, c)
		if err != nil {
			return nil, err
		}
		e.afterQuery(ctx, c, result)
		return result, nil
	}

	ttl := e.ttl(c.cache)

	if c.cache.deferredKey() {
		result, err := e.execute(ctx, c)
		if err != nil {
			return nil, err
		}
		e.afterQuery(ctx, c, result)
		key := e.keys.Join(c.cache.options.KeyFunc(result), c.cache.options.Namespace)
		if err := e.populate(ctx, c, key, result, ttl); err != nil {
			return nil, err
		}
		return result, nil
	}

	key := e.key(c)

	if !c.write {
		value, found, err := e.store.Get(ctx, key)
		if err != nil {
			return nil, errors.Wrapf(err, "querycache: get %q", key)
		}
		if found {
			decoded, err := e.codec.Decode(value)
			if err != nil {
				return nil, errors.Wrapf(err, "querycache: decode %q", key)
			}
			e.metrics.hit(c.entity)
			e.logger.Debug("cache hit", zap.String("key", key))
			return decoded, nil
		}
		e.metrics.miss(c.entity)
		e.logger.Debug("cache miss", zap.String("key", key))
		e.untrack(key)
	}

	var (
		result any
		err    error
	)
	if e.cfg.UseDeduplication && !c.write {
		var shared bool
		result, shared, err = e.inflight.Run(ctx, key, func(ctx context.Context) (any, error) {
			return e.execute(ctx, c)
		})
		if shared {
			e.metrics.deduplicated(c.entity)
		}
	} else {
		result, err = e.execute(ctx, c)
	}
	if err != nil {
		return nil, err
	}

	e.afterQuery(ctx, c, result)

	if err := e.populate(ctx, c, key, result, ttl); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) execute(ctx context.Context, c call) (any, error) {
	operation := c.operation
	if c.raw {
		operation = RawOperation
	}
	e.metrics.executed(c.entity, operation)
	return c.query(ctx, c.args)
}

// key resolves the store key for a directive whose key does not depend on
// the result.
func (e *Engine) key(c call) string {
	switch c.cache.kind {
	case CacheLiteralKey:
		return c.cache.key
	case CacheStructured:
		if c.cache.options.Key != "" {
			return e.keys.Join(c.cache.options.Key, c.cache.options.Namespace)
		}
		return e.keys.Compose(c.entity, c.operation, c.cache.options.Namespace, map[string]any(c.args))
	default:
		return e.keys.Compose(c.entity, c.operation, "", map[string]any(c.args))
	}
}

// ttl applies the precedence: directive TTL, structured TTL, engine default.
// Zero leaves the lifetime to the store.
func (e *Engine) ttl(d CacheDirective) time.Duration {
	switch {
	case d.kind == CacheTTL && d.ttl > 0:
		return d.ttl
	case d.kind == CacheStructured && d.options.TTL > 0:
		return d.options.TTL
	default:
		return e.cfg.DefaultTTL
	}
}

func (e *Engine) populate(ctx context.Context, c call, key string, result any, ttl time.Duration) error {
	value, err := e.codec.Encode(result)
	if err != nil {
		return errors.Wrapf(err, "querycache: encode %q", key)
	}
	if err := e.store.Set(ctx, key, value, ttl); err != nil {
		return errors.Wrapf(err, "querycache: set %q", key)
	}
	if e.cfg.TrackKeys && c.entity != "" {
		var deadline time.Time
		if ttl > 0 {
			deadline = e.now().Add(ttl)
		}
		e.track(key, c.entity, deadline)
		for _, related := range e.tracer.ReadEntities(c.entity, c.args) {
			e.track(key, related, deadline)
		}
	}
	return nil
}
