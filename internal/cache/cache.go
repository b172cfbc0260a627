// Package cache is a small memoization layer with per-call TTLs.
//
// Each remote call site owns one Cache keyed by its argument tuple, so
// distinct entity ids memoize independently. Failed loads are never stored:
// a later call retries against the loader instead of replaying a failure.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[V]
	now     func() time.Time
}

func New[K comparable, V any]() *Cache[K, V] {
	return NewWithClock[K, V](time.Now)
}

// NewWithClock injects a deterministic clock for tests.
func NewWithClock[K comparable, V any](now func() time.Time) *Cache[K, V] {
	return &Cache[K, V]{entries: map[K]entry[V]{}, now: now}
}

// Get returns the cached value for key if it is still fresh, otherwise runs
// loader and caches the result for ttl. Loader errors pass through uncached.
func (c *Cache[K, V]) Get(key K, ttl time.Duration, loader func() (V, error)) (V, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.expires) {
		v := e.value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := loader()
	if err != nil {
		var zero V
		return zero, err
	}

	c.mu.Lock()
	c.entries[key] = entry[V]{value: v, expires: c.now().Add(ttl)}
	c.mu.Unlock()
	return v, nil
}

// Invalidate drops every entry; the next Get repopulates from the loader.
func (c *Cache[K, V]) Invalidate() {
	c.mu.Lock()
	c.entries = map[K]entry[V]{}
	c.mu.Unlock()
}

// InvalidateKey drops a single entry.
func (c *Cache[K, V]) InvalidateKey(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
