// Package cache provides a small thread-safe TTL cache. The server uses it
// to memoize enhanced pages so repeated requests skip the lifecycle pass.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a TTL cache. Entries expire after the configured TTL; a
// background sweep reclaims expired entries between reads.
type Cache[V any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]entry[V]

	shutdown chan struct{}
	done     chan struct{}
}

// New creates a TTL cache and starts its sweep goroutine. sweepInterval <= 0
// defaults to the TTL. Call Close to stop the sweeper.
func New[V any](ttl, sweepInterval time.Duration) *Cache[V] {
	if sweepInterval <= 0 {
		sweepInterval = ttl
	}
	c := &Cache[V]{
		ttl:      ttl,
		items:    make(map[string]entry[V]),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.sweep(sweepInterval)
	return c
}

// Get returns the value for key if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		var zero V
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check: Set may have refreshed the entry meanwhile.
		if cur, still := c.items[key]; still && time.Now().After(cur.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with a fresh TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.items[key] = entry[V]{value: value, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Delete removes key. It reports whether the key was present.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	_, ok := c.items[key]
	delete(c.items, key)
	c.mu.Unlock()
	return ok
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]entry[V])
	c.mu.Unlock()
}

// Len returns the number of entries, counting expired ones not yet swept.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the sweep goroutine. Safe to call more than once.
func (c *Cache[V]) Close() {
	select {
	case <-c.shutdown:
	default:
		close(c.shutdown)
	}
	<-c.done
}

func (c *Cache[V]) sweep(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.shutdown:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, e := range c.items {
				if now.After(e.expiresAt) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
