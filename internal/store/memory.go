package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var (
	// ErrNotFound is returned when no live entry exists for a key.
	ErrNotFound = errors.New("not found")
)

type record[V any] struct {
	value     V
	updatedAt time.Time
	seq       uint64
}

// MemoryStore is a concurrency-safe in-memory keyed store with count and
// idle-age retention.
type MemoryStore[V any] struct {
	mu sync.RWMutex

	data map[string]*record[V]

	// retention configuration
	maxCount int           // max number of entries; oldest-updated evicted first
	maxAge   time.Duration // entries idle longer than this are expired

	clock clockwork.Clock
	seq   uint64
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxCount or maxAge is <= 0, it is treated as unlimited.
func NewMemoryStore[V any](maxCount int, maxAge time.Duration, clock clockwork.Clock) *MemoryStore[V] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore[V]{
		data:     make(map[string]*record[V]),
		maxCount: maxCount,
		maxAge:   maxAge,
		clock:    clock,
	}
}

// Save stores value under key and enforces retention by count.
func (s *MemoryStore[V]) Save(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.data[key] = &record[V]{value: value, updatedAt: s.clock.Now(), seq: s.seq}
	s.evictOverflow()
}

// Get returns the live value stored under key.
func (s *MemoryStore[V]) Get(key string) (V, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[key]
	if !ok || s.expired(rec) {
		var zero V
		return zero, ErrNotFound
	}
	return rec.value, nil
}

// Update applies fn to the value under key while holding the write lock, so
// concurrent updates of one key are serialised. The entry's idle timer is
// reset only when fn succeeds.
func (s *MemoryStore[V]) Update(key string, fn func(V) (V, error)) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	rec, ok := s.data[key]
	if !ok || s.expired(rec) {
		return zero, ErrNotFound
	}
	next, err := fn(rec.value)
	if err != nil {
		return zero, err
	}
	s.seq++
	rec.value = next
	rec.updatedAt = s.clock.Now()
	rec.seq = s.seq
	return next, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *MemoryStore[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Sweep drops expired entries and returns how many were removed.
func (s *MemoryStore[V]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, rec := range s.data {
		if s.expired(rec) {
			delete(s.data, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemoryStore[V]) expired(rec *record[V]) bool {
	if s.maxAge <= 0 {
		return false
	}
	return s.clock.Since(rec.updatedAt) > s.maxAge
}

// evictOverflow must be called with the write lock held.
func (s *MemoryStore[V]) evictOverflow() {
	if s.maxCount <= 0 || len(s.data) <= s.maxCount {
		return
	}
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := s.data[keys[i]], s.data[keys[j]]
		if !a.updatedAt.Equal(b.updatedAt) {
			return a.updatedAt.Before(b.updatedAt)
		}
		return a.seq < b.seq
	})
	for _, k := range keys[:len(keys)-s.maxCount] {
		delete(s.data, k)
	}
}
