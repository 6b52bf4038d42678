package geocode

import (
	"strings"
	"sync"
	"time"
)

// queryCache is a small LRU cache of geocode results keyed by normalized
// query text, with TTL expiration.
type queryCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	order      []string // LRU order: front=oldest, back=newest
	maxEntries int
	ttl        time.Duration
}

type cacheEntry struct {
	result    *Result
	createdAt time.Time
}

func newQueryCache(maxEntries int, ttl time.Duration) *queryCache {
	return &queryCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

func cacheKey(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

func (c *queryCache) get(query string) (*Result, bool) {
	key := cacheKey(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.createdAt) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, false
	}

	// Move to back (most recently used).
	c.removeFromOrder(key)
	c.order = append(c.order, key)
	return entry.result, true
}

func (c *queryCache) put(query string, r *Result) {
	key := cacheKey(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = &cacheEntry{result: r, createdAt: time.Now()}
		c.removeFromOrder(key)
		c.order = append(c.order, key)
		return
	}

	// Evict from front if at capacity.
	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = &cacheEntry{result: r, createdAt: time.Now()}
	c.order = append(c.order, key)
}

func (c *queryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
