package sleepy

import (
	"container/list"
	"sync"
	"time"
)

// memoryCache is the default [Cache] implementation: a bounded
// in-memory TTL cache with insertion-order eviction. The original
// deployment used a 64-entry cache with a 4 hour TTL, which remain
// the configuration defaults.
type memoryCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

type cacheEntry struct {
	key       string
	value     CachedResponse
	expiresAt time.Time
}

// NewMemoryCache returns an in-memory [Cache] holding up to maxEntries
// values for at most ttl each. maxEntries <= 0 means unbounded;
// ttl <= 0 means entries never expire.
func NewMemoryCache(maxEntries int, ttl time.Duration) Cache {
	return &memoryCache{
		entries:    map[string]*list.Element{},
		order:      list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

func (c *memoryCache) Get(key string) (CachedResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return CachedResponse{}, false
	}

	entry := elem.Value.(*cacheEntry)
	if c.ttl > 0 && c.now().After(entry.expiresAt) {
		c.removeLocked(elem)
		return CachedResponse{}, false
	}
	return entry.value, true
}

func (c *memoryCache) Set(key string, value CachedResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem)
	}

	if c.maxEntries > 0 {
		for len(c.entries) >= c.maxEntries {
			oldest := c.order.Front()
			if oldest == nil {
				break
			}
			c.removeLocked(oldest)
		}
	}

	entry := &cacheEntry{key: key, value: value}
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}
	c.entries[key] = c.order.PushBack(entry)
}

// Len returns the number of live entries, counting expired entries
// that have not yet been evicted.
func (c *memoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *memoryCache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	delete(c.entries, entry.key)
	c.order.Remove(elem)
}
