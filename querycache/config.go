package querycache

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/invalidation"
)

// Config holds the engine settings.
type Config struct {
	// DefaultTTL applies when a directive carries no TTL. Zero defers to the
	// store default.
	DefaultTTL time.Duration
	// UseDeduplication collapses concurrent identical calls into one execution.
	UseDeduplication bool
	// UseAutoUncache deletes entries of every entity a write touches.
	UseAutoUncache bool
	// TrackKeys records which entities each written entry depends on, so
	// invalidation works on stores that cannot enumerate keys.
	TrackKeys bool
	// MaxTraceDepth bounds the relation walk of the invalidation tracer.
	MaxTraceDepth int
	// TypePrefixes are the codec sentinels.
	TypePrefixes cache.TypePrefixes
	// Operations are the classification tables.
	Operations Operations
}

// DefaultConfig returns a Config with deduplication and key tracking on and
// automatic invalidation off.
func DefaultConfig() Config {
	return Config{
		UseDeduplication: true,
		TrackKeys:        true,
		MaxTraceDepth:    invalidation.DefaultMaxDepth,
		TypePrefixes:     cache.DefaultTypePrefixes(),
		Operations:       DefaultOperations(),
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.DefaultTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxTraceDepth, validation.Required, validation.Min(1)),
		validation.Field(&c.TypePrefixes),
		validation.Field(&c.Operations),
	)
}

// envConfig lists the settings that can come from the environment.
type envConfig struct {
	DefaultTTL       time.Duration `env:"QUERYCACHE_DEFAULT_TTL" env-default:"0s"`
	UseDeduplication bool          `env:"QUERYCACHE_DEDUPLICATION" env-default:"true"`
	UseAutoUncache   bool          `env:"QUERYCACHE_AUTO_UNCACHE" env-default:"false"`
	TrackKeys        bool          `env:"QUERYCACHE_TRACK_KEYS" env-default:"true"`
	MaxTraceDepth    int           `env:"QUERYCACHE_MAX_TRACE_DEPTH" env-default:"32"`
}

// LoadConfigFromEnv starts from DefaultConfig and applies QUERYCACHE_*
// environment variables.
func LoadConfigFromEnv() (Config, error) {
	var env envConfig
	if err := cleanenv.ReadEnv(&env); err != nil {
		return Config{}, errors.Wrap(err, "read querycache environment")
	}

	cfg := DefaultConfig()
	cfg.DefaultTTL = env.DefaultTTL
	cfg.UseDeduplication = env.UseDeduplication
	cfg.UseAutoUncache = env.UseAutoUncache
	cfg.TrackKeys = env.TrackKeys
	cfg.MaxTraceDepth = env.MaxTraceDepth

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
