package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultMaxEntries = 256

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache implements Cache in process on an expiring LRU. The least
// recently used bundle is evicted once maxEntries is reached.
//
// Every entry lives at most the ttl given to NewMemoryCache. A shorter ttl
// passed to Set is honored on read.
type MemoryCache struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

// NewMemoryCache creates an in-process cache holding at most maxEntries
// values for at most ttl. A non-positive maxEntries means 256; a
// non-positive ttl keeps entries until evicted.
func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if ttl < 0 {
		ttl = 0
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, memoryEntry](maxEntries, nil, ttl),
		now: time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.lru.Remove(key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.lru.Add(key, e)
	return nil
}

// Len returns the number of stored entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return nil
}
