package di

import (
	repository "github.com/goliatone/go-repository-bun"
	"github.com/pkg/errors"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/querycache"
	"github.com/goliatone/go-query-cache/repositorycache"
)

// Container provides dependency injection for cache related components.
// It owns a single cache store and query cache engine, and provides
// factory methods for creating cached repositories that share them.
type Container struct {
	store  cache.Store
	engine *querycache.Engine
	config cache.Config
}

// Option configures a Container.
type Option func(*containerOptions)

type containerOptions struct {
	store      cache.Store
	engineOpts []querycache.Option
}

// WithStore uses store instead of building the default sturdyc store. The
// store config passed to NewContainer is then kept for reference only.
func WithStore(store cache.Store) Option {
	return func(o *containerOptions) {
		o.store = store
	}
}

// WithEngineOptions forwards options to querycache.New.
func WithEngineOptions(opts ...querycache.Option) Option {
	return func(o *containerOptions) {
		o.engineOpts = append(o.engineOpts, opts...)
	}
}

// NewContainer creates a new DI container with the provided store
// configuration. Unless WithStore is given, the store is the sturdyc
// backed memory store.
func NewContainer(config cache.Config, opts ...Option) (*Container, error) {
	o := containerOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	store := o.store
	if store == nil {
		memory, err := cache.NewMemoryStore(config)
		if err != nil {
			return nil, err
		}
		store = memory
	}

	engine, err := querycache.New(store, o.engineOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "create query cache engine")
	}

	return &Container{
		store:  store,
		engine: engine,
		config: config,
	}, nil
}

// NewContainerWithDefaults creates a new DI container using default configuration.
// This is a convenience constructor for typical use cases where custom configuration
// is not required.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(cache.DefaultConfig(), opts...)
}

// NewContainerFromEnv builds the engine configuration from QUERYCACHE_*
// environment variables. Options given here are applied after it.
func NewContainerFromEnv(config cache.Config, opts ...Option) (*Container, error) {
	engineConfig, err := querycache.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithEngineOptions(querycache.WithConfig(engineConfig))}, opts...)
	return NewContainer(config, opts...)
}

// Store returns the singleton cache store instance.
func (c *Container) Store() cache.Store {
	return c.store
}

// Engine returns the singleton query cache engine.
func (c *Container) Engine() *querycache.Engine {
	return c.engine
}

// Config returns a copy of the store configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// NewCachedRepository creates a new cached repository that wraps the provided base repository.
// Every repository created from the same container shares its engine, so a
// write through one repository invalidates reads cached by the others.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewCachedRepository[User](container, baseUserRepository)
func NewCachedRepository[T any](container *Container, base repository.Repository[T], opts ...repositorycache.Option) *repositorycache.CachedRepository[T] {
	return repositorycache.New(base, container.engine, opts...)
}
