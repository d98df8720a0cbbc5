package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCacheKey(t *testing.T) {
	a := CacheKey("search", "hn", "rust async")
	b := CacheKey("search", "hn", "rust async")
	c := CacheKey("search", "reddit", "rust async")

	if a != b {
		t.Error("expected identical keys for identical parts")
	}
	if a == c {
		t.Error("expected different keys for different parts")
	}
	if !strings.HasPrefix(a, "horizon:v1:search:") {
		t.Errorf("unexpected key prefix: %s", a)
	}
	if CacheKey("search", "ab", "c") == CacheKey("search", "a", "bc") {
		t.Error("expected part boundaries to affect the key")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss")
	}

	_ = c.Set("k", []byte("v"), 0)
	got, ok := c.Get("k")
	if !ok || string(got) != "v" {
		t.Errorf("expected v, got %q (%v)", got, ok)
	}

	_ = c.Set("short", []byte("x"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Error("expected expired entry to miss")
	}

	_ = c.Clear()
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after clear")
	}
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := CacheKey("search", "hn", "wasm")

	if err := c.Set(key, []byte(`[1,2]`), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, ok := c.Get(key)
	if !ok || string(got) != `[1,2]` {
		t.Errorf("expected [1,2], got %q (%v)", got, ok)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.Contains(e.Name(), ":") {
			t.Errorf("cache file name should not contain ':' (%s)", e.Name())
		}
		if filepath.Ext(e.Name()) != ".cache" {
			t.Errorf("unexpected file left behind: %s", e.Name())
		}
	}

	if err := c.Delete(key); err != nil {
		t.Errorf("delete failed: %v", err)
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("deleting a missing key should not fail: %v", err)
	}
}

func TestDiskCache_Expired(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)

	_ = c.Set("k", []byte("v"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestLayeredCache_PromotesFromDisk(t *testing.T) {
	memory := NewMemoryCache(time.Minute, time.Minute)
	disk := NewDiskCache(t.TempDir(), time.Hour)
	_ = disk.Set("k", []byte("from-disk"), 0)

	c := NewLayeredCacheFrom(memory, disk)
	got, ok := c.Get("k")
	if !ok || string(got) != "from-disk" {
		t.Fatalf("expected disk hit, got %q (%v)", got, ok)
	}

	if _, ok := memory.Get("k"); !ok {
		t.Error("expected value promoted to memory")
	}
}

func TestJSONHelpers(t *testing.T) {
	type result struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	}

	c := NewMemoryCache(time.Minute, time.Minute)
	want := []result{{Title: "Go 1.25", URL: "https://go.dev/blog"}}

	if err := SetJSON(c, "k", want, 0); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}
	got, ok := GetJSON[[]result](c, "k")
	if !ok || len(got) != 1 || got[0] != want[0] {
		t.Errorf("expected %v, got %v (%v)", want, got, ok)
	}

	_ = c.Set("bad", []byte("{not json"), 0)
	if _, ok := GetJSON[[]result](c, "bad"); ok {
		t.Error("expected corrupt entry to miss")
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("expected corrupt entry to be evicted")
	}
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	_ = c.Set("k", []byte("v"), 0)
	if _, ok := c.Get("k"); ok {
		t.Error("Nop cache should never hit")
	}
}
