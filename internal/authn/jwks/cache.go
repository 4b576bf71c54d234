package jwks

import (
	"sync"
	"time"
)

type cacheEntry struct {
	key       any
	expiresAt time.Time
}

// Cache is an in-memory, TTL-bounded store of signing keys keyed by kid.
// Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

// NewCache constructs a Cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{entries: make(map[string]*cacheEntry), ttl: ttl}
}

// Get returns the cached key for keyID, or nil if absent or expired.
func (c *Cache) Get(keyID string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[keyID]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil
	}
	return entry.key
}

// Set stores key under keyID with the configured TTL.
func (c *Cache) Set(keyID string, key any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[keyID] = &cacheEntry{key: key, expiresAt: time.Now().Add(c.ttl)}
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

// Size reports the number of entries currently cached, including
// expired ones not yet evicted.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
