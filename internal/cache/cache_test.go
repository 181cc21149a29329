package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/veritas/internal/model"
)

func TestKey_Stable(t *testing.T) {
	a := Key("google", "earth flat", "10")
	b := Key("google", "earth flat", "10")
	if a != b {
		t.Errorf("expected stable key, got %s and %s", a, b)
	}
	if a == Key("google", "earth flat", "5") {
		t.Error("different parts must produce different keys")
	}
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("part boundaries must affect the key")
	}
}

func TestNew(t *testing.T) {
	if c := New(model.CacheConfig{Enabled: false}); c != nil {
		t.Errorf("expected nil cache when disabled, got %T", c)
	}
	if _, ok := New(model.CacheConfig{Enabled: true, TTL: time.Minute}).(*MemoryCache); !ok {
		t.Error("expected memory cache without dir")
	}
	if _, ok := New(model.CacheConfig{Enabled: true, TTL: time.Minute, Dir: t.TempDir()}).(*LayeredCache); !ok {
		t.Error("expected layered cache with dir")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if v, ok := c.Get("k"); !ok || string(v) != "v" {
		t.Errorf("Get = %q, %v", v, ok)
	}

	_ = c.Set("short", []byte("x"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Error("expected entry to expire")
	}

	_ = c.Clear()
	if _, ok := c.Get("k"); ok {
		t.Error("expected cache to be empty after Clear")
	}
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)

	key := Key("query")
	if err := c.Set(key, []byte(`{"a":1}`), 0); err != nil {
		t.Fatal(err)
	}
	if v, ok := c.Get(key); !ok || string(v) != `{"a":1}` {
		t.Errorf("Get = %q, %v", v, ok)
	}

	if err := c.Set("expired", []byte("x"), -time.Second); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("expired"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	disk := NewDiskCache(dir, time.Minute)
	_ = disk.Set("k", []byte("from-disk"), 0)

	c := NewLayeredCache(time.Minute, dir, time.Minute)
	if v, ok := c.Get("k"); !ok || string(v) != "from-disk" {
		t.Fatalf("Get = %q, %v", v, ok)
	}
	if v, ok := c.memory.Get("k"); !ok || string(v) != "from-disk" {
		t.Errorf("expected promotion to memory, got %q, %v", v, ok)
	}
}

func TestMemoryCache_StatsAndCopy(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	buf := []byte("abc")
	_ = c.Set("k", buf, 0)
	buf[0] = 'x'

	v, ok := c.Get("k")
	if !ok || string(v) != "abc" {
		t.Fatalf("Get = %q, %v; cached value must not alias the caller's slice", v, ok)
	}
	v[0] = 'y'
	if again, _ := c.Get("k"); string(again) != "abc" {
		t.Errorf("cached value changed through returned slice: %q", again)
	}
	_, _ = c.Get("missing")

	st := c.Stats()
	if st.Hits != 2 || st.Misses != 1 || st.Entries != 1 {
		t.Errorf("Stats = %+v, want 2 hits, 1 miss, 1 entry", st)
	}
}

func TestDiskCache_ShardedAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)

	key := Key("google", "moon landing", "10")
	if err := c.Set(key, []byte("payload"), 0); err != nil {
		t.Fatal(err)
	}
	path := c.path(key)
	if filepath.Dir(path) == dir {
		t.Errorf("expected entry in a shard directory, got %s", path)
	}

	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(key); ok {
		t.Error("expected corrupt entry to miss")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected corrupt entry to be removed")
	}
}

func TestDiskCache_Prune(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)

	_ = c.Set(Key("fresh"), []byte("a"), time.Hour)
	_ = c.Set(Key("stale-1"), []byte("b"), time.Millisecond)
	_ = c.Set(Key("stale-2"), []byte("c"), time.Millisecond)

	c.now = func() time.Time { return time.Now().Add(time.Minute) }
	removed, err := c.Prune()
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("Prune removed %d, want 2", removed)
	}
	if _, ok := c.Get(Key("fresh")); !ok {
		t.Error("fresh entry should survive Prune")
	}

	missing := NewDiskCache(filepath.Join(dir, "nope"), time.Minute)
	if n, err := missing.Prune(); err != nil || n != 0 {
		t.Errorf("Prune on missing dir = %d, %v", n, err)
	}
}
