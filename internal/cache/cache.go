// Package cache is a small in-memory TTL cache.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache maps string keys to values of type V until they expire.
type Cache[V any] struct {
	mu          sync.RWMutex
	items       map[string]item[V]
	ttl         time.Duration
	lastCleanup time.Time
	now         func() time.Time
}

// New returns a cache whose entries live for ttl.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		items:       make(map[string]item[V]),
		ttl:         ttl,
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.items[key] = item[V]{value: value, expiresAt: now.Add(c.ttl)}

	// sweep at most once per ttl instead of running a background goroutine
	if now.Sub(c.lastCleanup) >= c.ttl {
		c.cleanup(now)
		c.lastCleanup = now
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[key]
	if !ok || c.now().After(it.expiresAt) {
		var zero V
		return zero, false
	}
	return it.value, true
}

// Len counts entries, expired ones included until the next sweep.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[V]) cleanup(now time.Time) {
	for key, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, key)
		}
	}
}

// Key hashes parts into a fixed-size key. Parts are separated so that
// ("ab", "c") and ("a", "bc") differ.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
