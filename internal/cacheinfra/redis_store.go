package cacheinfra

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix   = "querycache"
	defaultRedisScanSize = 200
)

// RedisClient captures the subset of the go-redis client used by the store.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// RedisConfig configures a Redis backed store.
type RedisConfig struct {
	Client RedisClient
	// Prefix namespaces every key written by the store. Default: "querycache".
	Prefix string
	// DefaultTTL applies when a call resolves no TTL. Zero keeps entries
	// until they are deleted.
	DefaultTTL time.Duration
}

// RedisStore keeps envelopes in Redis and enumerates keys with SCAN.
type RedisStore struct {
	client     RedisClient
	prefix     string
	defaultTTL time.Duration
}

// NewRedisStore builds a Redis backed store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Client == nil {
		return nil, &ConfigError{Field: "Client", Message: "cannot be nil"}
	}
	if cfg.DefaultTTL < 0 {
		return nil, &ConfigError{Field: "DefaultTTL", Message: "must be non-negative"}
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: cfg.Client, prefix: prefix, defaultTTL: cfg.DefaultTTL}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.cacheKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	return s.client.Set(ctx, s.cacheKey(key), value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.cacheKey(key)).Err()
}

// Keys walks the prefix with SCAN and returns unprefixed keys containing match.
func (s *RedisStore) Keys(ctx context.Context, match string) ([]string, error) {
	var (
		out    []string
		cursor uint64
	)
	pattern := s.prefix + ":*"
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, defaultRedisScanSize).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			key = strings.TrimPrefix(key, s.prefix+":")
			if strings.Contains(key, match) {
				out = append(out, key)
			}
		}
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}

func (s *RedisStore) cacheKey(key string) string {
	return s.prefix + ":" + key
}
