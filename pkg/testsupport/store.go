// Package testsupport provides cache store and query fakes for tests.
package testsupport

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-query-cache/cache"
)

// SetCall records one Set on a RecordingStore.
type SetCall struct {
	Key   string
	Value string
	TTL   time.Duration
}

// RecordingStore is an in-memory cache.Store and cache.KeyEnumerator that
// records every call. Error fields make the matching method fail.
type RecordingStore struct {
	mu      sync.Mutex
	entries map[string]recorded
	now     func() time.Time

	GetErr    error
	SetErr    error
	DeleteErr error
	KeysErr   error

	gets    []string
	sets    []SetCall
	deletes []string
}

type recorded struct {
	value     string
	expiresAt time.Time
}

var (
	_ cache.Store         = (*RecordingStore)(nil)
	_ cache.KeyEnumerator = (*RecordingStore)(nil)
)

// NewRecordingStore returns an empty store using the wall clock.
func NewRecordingStore() *RecordingStore {
	return &RecordingStore{
		entries: make(map[string]recorded),
		now:     time.Now,
	}
}

// SetClock replaces the clock used for expiry.
func (s *RecordingStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *RecordingStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets = append(s.gets, key)
	if s.GetErr != nil {
		return "", false, s.GetErr
	}
	entry, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (s *RecordingStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets = append(s.sets, SetCall{Key: key, Value: value, TTL: ttl})
	if s.SetErr != nil {
		return s.SetErr
	}
	entry := recorded{value: value}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

func (s *RecordingStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, key)
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	delete(s.entries, key)
	return nil
}

// Keys returns stored keys containing match, sorted.
func (s *RecordingStore) Keys(_ context.Context, match string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.KeysErr != nil {
		return nil, s.KeysErr
	}
	var keys []string
	for key := range s.entries {
		if strings.Contains(key, match) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Has reports whether key is stored, ignoring expiry.
func (s *RecordingStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

// Put stores value under key without recording a Set.
func (s *RecordingStore) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = recorded{value: value}
}

// Gets returns the keys passed to Get.
func (s *RecordingStore) Gets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.gets...)
}

// Sets returns the recorded Set calls.
func (s *RecordingStore) Sets() []SetCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SetCall(nil), s.sets...)
}

// Deletes returns the keys passed to Delete.
func (s *RecordingStore) Deletes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletes...)
}

// PlainStore hides the KeyEnumerator of the wrapped store.
type PlainStore struct {
	cache.Store
}
