package cacheinfra

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultLocalTTL     = 5 * time.Minute
	defaultLocalCleanup = time.Minute
)

// LocalStore is an in-process store with native per item expiry.
type LocalStore struct {
	cache *gocache.Cache
}

// NewLocalStore builds a go-cache backed store. Non-positive arguments fall
// back to a 5 minute default TTL and a one minute janitor interval.
func NewLocalStore(defaultTTL, cleanupInterval time.Duration) *LocalStore {
	if defaultTTL <= 0 {
		defaultTTL = defaultLocalTTL
	}
	if cleanupInterval <= 0 {
		cleanupInterval = defaultLocalCleanup
	}
	return &LocalStore{cache: gocache.New(defaultTTL, cleanupInterval)}
}

func (s *LocalStore) Get(_ context.Context, key string) (string, bool, error) {
	item, ok := s.cache.Get(key)
	if !ok {
		return "", false, nil
	}
	value, ok := item.(string)
	if !ok {
		return "", false, nil
	}
	return value, true, nil
}

func (s *LocalStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	s.cache.Set(key, value, ttl)
	return nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Keys lists unexpired keys containing match.
func (s *LocalStore) Keys(_ context.Context, match string) ([]string, error) {
	items := s.cache.Items()
	out := make([]string, 0, len(items))
	for key := range items {
		if strings.Contains(key, match) {
			out = append(out, key)
		}
	}
	return out, nil
}
