// Package ttlcache provides the process-local, time-bounded map collaborator
// clients use for lookup caching (spec §5: "Caches (order lookups, charge
// lookups): process-local time-bounded maps, TTL 600s; safe under
// single-threaded event-loop access per worker, no cross-process coherence
// promised."). It is owned by the collaborator client, never by the core
// pipeline — pkg/helpdesk's sandbox client, which records created ticket
// IDs in it, is its only caller.
package ttlcache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

// Cache is a generic TTL map safe for concurrent access across a worker's
// goroutines, matching original_source's {key: (timestamp, value)} caches
// in common/clients/shopify.py and stripe.py.
type Cache[K comparable, V any] struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[K]entry[V]
}

// New creates a Cache with the given entry lifetime.
func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		ttl: ttl,
		m:   make(map[K]entry[V]),
	}
}

// Get returns the cached value for key if present and not expired.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.m[key]
	if !ok || time.Now().After(e.expires) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value for key with this cache's configured TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.m[key] = entry[V]{value: value, expires: time.Now().Add(c.ttl)}
}

// Evict removes every expired entry. Callers that want periodic eviction
// run this from a ticker loop (see EvictionLoop); entries are also lazily
// skipped by Get once expired, so eviction is a memory optimization, not a
// correctness requirement.
func (c *Cache[K, V]) Evict() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for k, e := range c.m {
		if now.After(e.expires) {
			delete(c.m, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries currently stored, expired or not.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
