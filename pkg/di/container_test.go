package di

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/pkg/testsupport"
	"github.com/goliatone/go-query-cache/querycache"
)

func TestNewContainer(t *testing.T) {
	config := cache.Config{
		Capacity:           1000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EvictionInterval:   0,
	}

	container, err := NewContainer(config)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}

	if container == nil {
		t.Fatal("NewContainer() returned nil container")
	}

	// Verify that dependencies are properly initialized
	if container.Store() == nil {
		t.Error("Container should have a non-nil store")
	}

	if container.Engine() == nil {
		t.Error("Container should have a non-nil engine")
	}

	if container.Engine().Store() != container.Store() {
		t.Error("Engine should use the container store")
	}

	// Verify config is stored correctly
	storedConfig := container.Config()
	if storedConfig.Capacity != config.Capacity {
		t.Errorf("Expected capacity %d, got %d", config.Capacity, storedConfig.Capacity)
	}

	if storedConfig.TTL != config.TTL {
		t.Errorf("Expected TTL %v, got %v", config.TTL, storedConfig.TTL)
	}
}

func TestNewContainerWithDefaults(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	config := container.Config()
	defaultConfig := cache.DefaultConfig()

	if config.Capacity != defaultConfig.Capacity {
		t.Errorf("Expected default capacity %d, got %d", defaultConfig.Capacity, config.Capacity)
	}

	if config.TTL != defaultConfig.TTL {
		t.Errorf("Expected default TTL %v, got %v", defaultConfig.TTL, config.TTL)
	}

	if got := container.Engine().Config(); !got.UseDeduplication || got.UseAutoUncache {
		t.Errorf("Expected default engine config, got %+v", got)
	}
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	invalidConfig := cache.Config{
		Capacity:           0, // Invalid: must be > 0
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}

	_, err := NewContainer(invalidConfig)
	if err == nil {
		t.Error("NewContainer() should fail with invalid config")
	}
}

func TestNewContainer_InvalidEngineConfig(t *testing.T) {
	engineConfig := querycache.DefaultConfig()
	engineConfig.MaxTraceDepth = 0

	_, err := NewContainerWithDefaults(WithEngineOptions(querycache.WithConfig(engineConfig)))
	if err == nil {
		t.Error("NewContainer() should fail with invalid engine config")
	}
}

func TestNewContainer_WithStore(t *testing.T) {
	store := testsupport.NewRecordingStore()

	// The store config is not validated when a store is supplied
	container, err := NewContainer(cache.Config{}, WithStore(store))
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}

	if container.Store() != cache.Store(store) {
		t.Error("Container should use the supplied store")
	}
}

func TestNewContainerFromEnv(t *testing.T) {
	t.Setenv("QUERYCACHE_AUTO_UNCACHE", "true")
	t.Setenv("QUERYCACHE_DEFAULT_TTL", "30s")

	container, err := NewContainerFromEnv(cache.DefaultConfig())
	if err != nil {
		t.Fatalf("NewContainerFromEnv() failed: %v", err)
	}

	got := container.Engine().Config()
	if !got.UseAutoUncache {
		t.Error("Expected auto uncache from environment")
	}
	if got.DefaultTTL != 30*time.Second {
		t.Errorf("Expected DefaultTTL 30s, got %v", got.DefaultTTL)
	}
}

func TestContainerSingletonBehavior(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	// Call getters multiple times to ensure they return the same instances
	if container.Store() != container.Store() {
		t.Error("Store() should return the same instance (singleton behavior)")
	}

	if container.Engine() != container.Engine() {
		t.Error("Engine() should return the same instance (singleton behavior)")
	}
}

func TestStoreIntegration(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	store := container.Store()
	ctx := context.Background()

	if err := store.Set(ctx, "test-key", "test-value", 0); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	value, ok, err := store.Get(ctx, "test-key")
	if err != nil || !ok {
		t.Fatalf("Get() = %q, %v, %v", value, ok, err)
	}
	if value != "test-value" {
		t.Errorf("Expected value %q, got %q", "test-value", value)
	}

	if err := store.Delete(ctx, "test-key"); err != nil {
		t.Errorf("Delete() failed: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "test-key"); ok {
		t.Error("Expected key to be deleted")
	}
}
