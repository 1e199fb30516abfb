package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hayasaka/jqproxy/pkg/redis"
)

// entry is a cached response body with its storage time and TTL.
type entry struct {
	body     []byte
	storedAt time.Time
	ttl      time.Duration
}

// Cache is the process-lifetime response cache. Entries expire per-endpoint
// TTL and are lazily evicted on lookup; there is no background sweep. An
// optional redis layer shares entries across warm instances.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	shared  *redis.Cache // nil when redis is disabled

	now func() time.Time // injectable clock for tests
}

// New creates an empty cache. shared may be nil.
func New(shared *redis.Cache) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		shared:  shared,
		now:     time.Now,
	}
}

// Get returns the cached body for key, or (nil, false) on miss or expiry.
// Expired local entries are evicted here.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		if c.now().Sub(e.storedAt) > e.ttl {
			c.mu.Lock()
			// Re-check under the write lock; a concurrent Set may have
			// refreshed the entry. Last-writer-wins is fine for a cache.
			if cur, still := c.entries[key]; still && cur.storedAt.Equal(e.storedAt) {
				delete(c.entries, key)
			}
			c.mu.Unlock()
		} else {
			return e.body, true
		}
	}

	if c.shared != nil {
		if body, found := c.shared.Get(ctx, key); found {
			return body, true
		}
	}

	return nil, false
}

// Set stores body under key with the given TTL, writing through to the
// shared layer when present.
func (c *Cache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	c.entries[key] = entry{body: body, storedAt: c.now(), ttl: ttl}
	c.mu.Unlock()

	if c.shared != nil {
		c.shared.Set(ctx, key, body, ttl)
	}
}

// Len returns the number of live local entries. For observability and tests.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
