// Package cache provides a small TTL key-value cache shielding the weather
// provider and geocoder from redundant calls.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TTL is an in-memory cache with per-entry expiry.
//
// Concurrent GetOrFetch calls for the same missing key may each invoke their
// fetch; collapsing them into one upstream call is deliberately not promised.
// What is promised: a failed fetch is never cached, and a successful fetch is
// visible to subsequent callers until its TTL elapses.
type TTL[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	clock   clockwork.Clock

	hits   uint64
	misses uint64
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func New[V any]() *TTL[V] {
	return NewWithClock[V](clockwork.NewRealClock())
}

// NewWithClock builds a cache on an injected clock; tests freeze it.
func NewWithClock[V any](clock clockwork.Clock) *TTL[V] {
	return &TTL[V]{entries: make(map[string]entry[V]), clock: clock}
}

// Get returns the cached value for key if present and not expired.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return e.value, true
}

// Set stores value under key for ttl.
func (c *TTL[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.clock.Now().Add(ttl)}
	c.mu.Unlock()
}

// GetOrFetch returns the cached value, or calls fetch and caches the result.
// Fetch runs synchronously, outside the cache lock. Errors are returned to
// the caller and never cached.
func (c *TTL[V]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := fetch(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v, ttl)
	return v, nil
}

// Stats returns cumulative hit/miss counters.
func (c *TTL[V]) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len reports the number of live entries (expired ones included until read).
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
