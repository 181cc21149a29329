package cache

import "time"

// LayeredCache fronts a DiskCache with a MemoryCache. Disk hits are copied
// into memory for whatever lifetime they have left.
type LayeredCache struct {
	memory *MemoryCache
	disk   *DiskCache
}

// NewLayeredCache creates a memory-over-disk cache.
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, sweepInterval),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if v, ok := c.memory.Get(key); ok {
		return v, true
	}

	e, ok := c.disk.load(key)
	if !ok {
		return nil, false
	}
	if remaining := e.ExpiresAt.Sub(c.disk.now()); remaining > 0 {
		_ = c.memory.Set(key, e.Payload, remaining)
	}
	return e.Payload, true
}

// Set writes through to both layers.
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	_ = c.memory.Set(key, value, ttl)
	return c.disk.Set(key, value, ttl)
}

func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	return c.disk.Clear()
}

// Stats reports the memory layer counters.
func (c *LayeredCache) Stats() Stats {
	return c.memory.Stats()
}
