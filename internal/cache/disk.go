package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DiskCache persists search results as JSON files under dir so repeated CLI
// runs can reuse them. Files are spread over two-character shard
// directories and written atomically.
type DiskCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewDiskCache creates a disk cache rooted at dir.
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{dir: dir, ttl: ttl, now: time.Now}
}

type diskEntry struct {
	Key       string    `json:"key"`
	StoredAt  time.Time `json:"stored_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Payload   []byte    `json:"payload"`
}

func (c *DiskCache) Get(key string) ([]byte, bool) {
	e, ok := c.load(key)
	if !ok {
		return nil, false
	}
	return e.Payload, true
}

// load returns the live entry for key. Expired or corrupt files are removed.
func (c *DiskCache) load(key string) (diskEntry, bool) {
	path := c.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return diskEntry{}, false
	}

	var e diskEntry
	if err := json.Unmarshal(data, &e); err != nil || e.Key != key {
		_ = os.Remove(path)
		return diskEntry{}, false
	}
	if !c.now().Before(e.ExpiresAt) {
		_ = os.Remove(path)
		return diskEntry{}, false
	}
	return e, true
}

// Set writes value to disk. A zero ttl uses the cache default.
func (c *DiskCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}
	now := c.now()
	data, err := json.Marshal(diskEntry{
		Key:       key,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
		Payload:   value,
	})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}

// Clear removes the whole cache directory.
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// Prune deletes expired and unreadable entries and returns how many files
// were removed.
func (c *DiskCache) Prune() (int, error) {
	removed := 0
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var e diskEntry
		if json.Unmarshal(data, &e) == nil && c.now().Before(e.ExpiresAt) {
			return nil
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
		return nil
	})
	return removed, err
}

// path maps key to <dir>/<shard>/<name>.json.
func (c *DiskCache) path(key string) string {
	name := strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(key)
	shard := "00"
	if i := strings.LastIndexByte(name, '_'); i >= 0 && len(name)-i > 2 {
		shard = name[i+1 : i+3]
	}
	return filepath.Join(c.dir, shard, name+".json")
}
