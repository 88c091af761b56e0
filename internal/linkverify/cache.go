package linkverify

import (
	"maps"
	"sync"

	"git.home.luguber.info/inful/checklinks/internal/links"
)

// Cache holds the result of each key for one run. A key is written once;
// later stores for the same key are rejected.
type Cache struct {
	mu      sync.RWMutex
	results map[links.DedupKey]Result
}

func NewCache() *Cache {
	return &Cache{results: make(map[links.DedupKey]Result)}
}

// Store records res for key and reports whether it was the first store.
func (c *Cache) Store(key links.DedupKey, res Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.results[key]; exists {
		return false
	}
	c.results[key] = res
	return true
}

// Load returns the result of key, if stored.
func (c *Cache) Load(key links.DedupKey) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.results[key]
	return res, ok
}

// Snapshot copies the stored results.
func (c *Cache) Snapshot() map[links.DedupKey]Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.results)
}
