package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey generates a namespaced cache key from the request parts,
// e.g. CacheKey("search", "hn", "rust async")
func CacheKey(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "horizon:v1:" + namespace + ":" + hex.EncodeToString(hash[:])
}

// GetJSON decodes a cached JSON value into v. A corrupt entry is treated as a miss.
func GetJSON[T any](c Cache, key string) (T, bool) {
	var v T
	data, ok := c.Get(key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		_ = c.Delete(key)
		return v, false
	}
	return v, true
}

// SetJSON encodes v as JSON and stores it
func SetJSON[T any](c Cache, key string, v T, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(key, data, ttl)
}

// Nop is a cache that never stores anything
type Nop struct{}

// Get always misses
func (Nop) Get(key string) ([]byte, bool) { return nil, false }

// Set discards the value
func (Nop) Set(key string, value []byte, ttl time.Duration) error { return nil }

// Delete is a no-op
func (Nop) Delete(key string) error { return nil }

// Clear is a no-op
func (Nop) Clear() error { return nil }
