// Package mockcache serves cached responses and synthetic placeholder data
// while the backend is unreachable.
package mockcache

import (
	"sync"
	"time"

	"github.com/dashlens/resilience-core/pkg/logging"
	"github.com/dashlens/resilience-core/pkg/metrics"
)

type entry struct {
	value    interface{}
	storedAt time.Time
	expiry   time.Time
}

// Store is a bounded TTL cache keyed by operation type. Expired entries are
// evicted lazily on read; inserting past capacity drops the oldest entries.
type Store struct {
	mu         sync.Mutex
	entries    map[string]entry
	maxEntries int
	defaultTTL time.Duration
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewStore creates a store with the given capacity and default TTL.
func NewStore(maxEntries int, defaultTTL time.Duration, logger *logging.Logger, m *metrics.Metrics) *Store {
	if maxEntries <= 0 {
		maxEntries = 50
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	if m == nil {
		m = &metrics.Metrics{}
	}

	return &Store{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
		logger:     logger,
		metrics:    m,
	}
}

// Reconfigure re-bounds the store and changes the default TTL for future
// writes. Shrinking below the current size evicts the oldest entries.
func (s *Store) Reconfigure(maxEntries int, defaultTTL time.Duration) {
	if maxEntries <= 0 {
		maxEntries = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.maxEntries = maxEntries
	s.defaultTTL = defaultTTL
	for len(s.entries) > s.maxEntries {
		s.evictOldestLocked()
	}
}

// Set caches a value under the given key with the store's default TTL.
func (s *Store) Set(key string, value interface{}) {
	s.SetWithTTL(key, value, s.defaultTTL)
}

// SetWithTTL caches a value with an explicit TTL. A zero or negative TTL
// produces an entry that is already expired, so it will never be served.
func (s *Store) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		s.evictOldestLocked()
	}

	s.entries[key] = entry{
		value:    value,
		storedAt: now,
		expiry:   now.Add(ttl),
	}
}

// Get returns the cached value for key if it exists and has not expired.
// Expired entries are removed on the way out.
func (s *Store) Get(key string) (interface{}, bool) {
	now := time.Now()

	s.mu.Lock()
	e, ok := s.entries[key]
	if ok && !now.Before(e.expiry) {
		delete(s.entries, key)
		ok = false
		s.metrics.RecordCacheEviction()
	}
	s.mu.Unlock()

	if !ok {
		s.metrics.RecordCacheLookup("miss")
		return nil, false
	}
	s.metrics.RecordCacheLookup("hit")
	return e.value, true
}

// Delete removes a key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]entry)
	s.mu.Unlock()
}

// Len returns the number of entries, including any not yet lazily expired.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// evictOldestLocked drops the entry with the earliest store time.
func (s *Store) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for key, e := range s.entries {
		if first || e.storedAt.Before(oldest) {
			oldestKey = key
			oldest = e.storedAt
			first = false
		}
	}
	if !first {
		delete(s.entries, oldestKey)
		s.metrics.RecordCacheEviction()
		s.logger.Debug("cache entry evicted", "key", oldestKey)
	}
}
