package store

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// LRU is a thread-safe, typed least-recently-used cache with a fixed
// capacity.
type LRU[V any] struct {
	mu    sync.Mutex
	cache *lru.Cache
}

// NewLRU creates a cache holding at most maxEntries values. A non-positive
// size is raised to one.
func NewLRU[V any](maxEntries int) *LRU[V] {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &LRU[V]{cache: lru.New(maxEntries)}
}

// Get returns the value under key and marks it most recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.cache.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Put stores value under key, evicting the least recently used entry when
// full.
func (c *LRU[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(key, value)
}

// Len returns the number of cached entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}
