package redis

import (
	"context"
	"fmt"
	"time"
)

// Cache provides a shared byte cache layered behind the in-process response
// cache. Warm serverless instances share entries through it when enabled.
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper.
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Get retrieves a cached value. A miss is not an error.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.client.Enabled() {
		return nil, false
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	data, err := c.client.Redis().Get(ctx, fullKey).Bytes()
	if err != nil {
		return nil, false
	}

	return data, true
}

// Set stores a value with TTL. Failures are swallowed: the cache is an
// optimization, never a dependency.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if !c.client.Enabled() {
		return
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	_ = c.client.Redis().Set(ctx, fullKey, value, ttl).Err()
}

// Delete removes a cached value.
func (c *Cache) Delete(ctx context.Context, key string) {
	if !c.client.Enabled() {
		return
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	_ = c.client.Redis().Del(ctx, fullKey).Err()
}
