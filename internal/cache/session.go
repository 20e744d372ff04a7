// Package cache provides the session-scoped passage cache. Entries live for
// the lifetime of the process; there is no eviction, size bound, or TTL.
// The expected corpus (tens of books, up to ~150 chapters each) keeps the
// working set small, so this is deliberately not a general-purpose cache.
package cache

import (
	"sync"
	"time"
)

// Stats tracks cache effectiveness for the status line.
type Stats struct {
	Hits       int64
	Misses     int64
	ItemCount  int64
	Size       int64
	LastAccess time.Time
}

// Session is a string-keyed byte-value store cleared only when the process
// exits.
type Session struct {
	items map[string][]byte
	size  int64

	mu    sync.RWMutex
	stats Stats
}

// NewSession creates an empty session cache.
func NewSession() *Session {
	return &Session{
		items: make(map[string][]byte),
	}
}

// Get retrieves a value from the cache.
func (s *Session) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.items[key]
	if !ok {
		s.stats.Misses++
		return nil, false
	}

	s.stats.Hits++
	s.stats.LastAccess = time.Now()
	return value, true
}

// Put stores a value, overwriting any existing entry.
func (s *Session) Put(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.items[key]; ok {
		s.size -= int64(len(existing))
	}
	s.items[key] = value
	s.size += int64(len(value))

	s.stats.Size = s.size
	s.stats.ItemCount = int64(len(s.items))
}

// GetOrFetch returns the cached value for key, or invokes fetch on a miss.
// A successful fetch result is stored before being returned. Fetch failures
// are never cached; the next call re-attempts the fetch.
func (s *Session) GetOrFetch(key string, fetch func() ([]byte, error)) ([]byte, error) {
	if value, ok := s.Get(key); ok {
		return value, nil
	}

	value, err := fetch()
	if err != nil {
		return nil, err
	}

	s.Put(key, value)
	return value, nil
}

// Stats returns a snapshot of the cache counters.
func (s *Session) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
