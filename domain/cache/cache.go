package cache

import (
	"sync"
	"time"
)

// NoExpiration disables expiry for an entry.
const NoExpiration time.Duration = 0

type entry struct {
	value     interface{}
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Cache is an in-process cache with per-entry expiration.
// A stored nil value is a valid entry; callers use it for negative caching.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New creates a new cache instance.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
	}
}

// Set adds an item to the cache with a specified key, value and expiration.
// An expiration of NoExpiration keeps the entry until deleted.
func (c *Cache) Set(key string, value interface{}, expiration time.Duration) {
	var expiresAt time.Time
	if expiration != NoExpiration {
		expiresAt = time.Now().Add(expiration)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: expiresAt}
}

// Get retrieves the value associated with a key. Returns false if the key
// does not exist or the entry has expired.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if e.expired(time.Now()) {
		// Lazily evict. A concurrent Set for the same key may have refreshed
		// the entry; delete only the expired one.
		c.mu.Lock()
		if current, ok := c.entries[key]; ok && current.expired(time.Now()) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.value, true
}

// Delete removes an item from the cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of entries, including any not yet evicted expired ones.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
