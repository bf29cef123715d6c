package searchapi

import (
	"sync"

	"github.com/gregjones/httpcache"
)

// Compile-time interface satisfaction check.
var _ httpcache.Cache = (*memoryCache)(nil)

// memoryCache is an httpcache.Cache that can be emptied in one call, so cached
// authenticated responses never outlive the session that fetched them.
type memoryCache struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	resp, ok := c.items[key]
	return resp, ok
}

func (c *memoryCache) Set(key string, resp []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = resp
}

func (c *memoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes every entry.
func (c *memoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.items)
}

// Len returns the number of cached responses.
func (c *memoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
