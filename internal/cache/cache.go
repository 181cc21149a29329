// Package cache stores serialized search results between requests.
package cache

import (
	"strconv"
	"strings"
	"time"

	"github.com/OneOfOne/xxhash"

	"github.com/ppiankov/veritas/internal/model"
)

// sweepInterval is how often expired memory entries are dropped.
const sweepInterval = 10 * time.Minute

// Cache stores encoded search results by key.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Clear() error
}

// Stats counts cache lookups.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// New builds the cache described by cfg. Returns nil when caching is disabled.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.TTL, sweepInterval)
	}
	return NewLayeredCache(cfg.TTL, cfg.Dir, cfg.TTL)
}

// Key derives a stable cache key from its parts.
func Key(parts ...string) string {
	h := xxhash.NewS64(0)
	_, _ = h.Write([]byte(strings.Join(parts, "\x00")))
	return "veritas:v1:" + strconv.FormatUint(h.Sum64(), 16)
}
