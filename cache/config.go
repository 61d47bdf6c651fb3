package cache

import (
	"time"

	"github.com/goliatone/go-query-cache/internal/cacheinfra"
)

// Config exposes the in-memory store options for consumers of the cache package.
type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// RedisConfig configures NewRedisStore.
type RedisConfig = cacheinfra.RedisConfig

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewMemoryStore constructs the default in-process store (sturdyc).
func NewMemoryStore(cfg Config) (Store, error) {
	store, err := cacheinfra.NewSturdycStore(cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewLocalStore constructs an in-process store with native per item TTLs
// (patrickmn/go-cache).
func NewLocalStore(defaultTTL, cleanupInterval time.Duration) Store {
	return cacheinfra.NewLocalStore(defaultTTL, cleanupInterval)
}

// NewRedisStore constructs a Redis backed store.
func NewRedisStore(cfg RedisConfig) (Store, error) {
	store, err := cacheinfra.NewRedisStore(cfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
