package cache

import (
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps search results in process. Values are copied on the way
// in and out so callers cannot mutate cached bytes.
type MemoryCache struct {
	items  *gocache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoryCache creates a memory cache whose entries live for ttl unless
// Set overrides it. Expired entries are swept every sweep interval.
func NewMemoryCache(ttl, sweep time.Duration) *MemoryCache {
	return &MemoryCache{items: gocache.New(ttl, sweep)}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	b, ok := v.([]byte)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return clone(b), true
}

// Set stores value. A zero ttl uses the cache default.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.items.Set(key, clone(value), ttl)
	return nil
}

func (c *MemoryCache) Clear() error {
	c.items.Flush()
	return nil
}

// Stats reports hit and miss counts since creation.
func (c *MemoryCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.items.ItemCount(),
	}
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
