package cacheinfra

import (
	"context"
	"strings"
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc backed store.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Higher values improve concurrency but increase memory overhead.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is the lifetime of every entry in the underlying client. Per call
	// TTLs can only shorten it.
	// Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	// Default: 10 (evict 10% of entries)
	EvictionPercentage int

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EvictionInterval:   0, // Use default
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, TTL, and EvictionPercentage are passed directly
// to sturdyc.New() and are not included in the options.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// sturdycEntry carries the per entry deadline; sturdyc itself only knows
// the client wide TTL.
type sturdycEntry struct {
	value     string
	expiresAt time.Time
}

// SturdycStore is an in-process store backed by a sturdyc client.
type SturdycStore struct {
	client *sturdyc.Client[sturdycEntry]
	ttl    time.Duration
	now    func() time.Time
}

// NewSturdycStore validates cfg and initializes a sturdyc client with it.
func NewSturdycStore(cfg Config) (*SturdycStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[sturdycEntry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycStore{client: client, ttl: cfg.TTL, now: time.Now}, nil
}

// Get returns the stored envelope unless it is missing or past its deadline.
func (s *SturdycStore) Get(_ context.Context, key string) (string, bool, error) {
	entry, ok := s.client.Get(key)
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		s.client.Delete(key)
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set stores value with a per entry deadline. The client evicts every entry
// after Config.TTL, so a ttl that is zero or longer than Config.TTL is
// capped to it.
func (s *SturdycStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	entry := sturdycEntry{value: value}
	if ttl > s.ttl {
		ttl = s.ttl
	}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.client.Set(key, entry)
	return nil
}

// Delete removes a single entry.
func (s *SturdycStore) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// Keys scans the client for keys containing match.
func (s *SturdycStore) Keys(_ context.Context, match string) ([]string, error) {
	keys := s.client.ScanKeys()
	out := keys[:0]
	for _, key := range keys {
		if strings.Contains(key, match) {
			out = append(out, key)
		}
	}
	return out, nil
}

// Size reports the number of entries held by the client, expired or not.
func (s *SturdycStore) Size() int {
	return s.client.Size()
}
