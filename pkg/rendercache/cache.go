// Package rendercache provides an in-process LRU cache for rendered
// output, keyed by content item and viewer variant. Render warming
// populates a cache like this one; the warm-runner and the tests use it
// as the reference render-pipeline cache.
package rendercache

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Key identifies one cached render: a content item rendered for one
// viewer variant.
type Key struct {
	// ItemID is the content item identifier.
	ItemID string

	// VariantHash is the viewer variant hash. Empty means the anonymous
	// variant.
	VariantHash string
}

// String generates a deterministic cache key string.
// Format: render:<item_id>:<variant_hash>
func (k Key) String() string {
	parts := []string{"render", k.ItemID}
	if k.VariantHash != "" {
		parts = append(parts, k.VariantHash)
	}
	return strings.Join(parts, ":")
}

// Cache is a fixed-capacity LRU cache of rendered output.
type Cache struct {
	lru *lru.Cache[string, []byte]
}

// New creates a cache holding at most size entries.
func New(size int) (*Cache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be positive (got %d)", size)
	}

	inner, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Cache{lru: inner}, nil
}

// Get returns the cached render output for key, if present.
func (c *Cache) Get(key Key) ([]byte, bool) {
	out, ok := c.lru.Get(key.String())
	if !ok {
		renderCacheMisses.Inc()
		return nil, false
	}
	renderCacheHits.Inc()
	return out, true
}

// Set stores render output for key, evicting the least recently used
// entry when the cache is full.
func (c *Cache) Set(key Key, output []byte) {
	if evicted := c.lru.Add(key.String(), output); evicted {
		renderCacheEvictions.Inc()
	}
	renderCacheEntries.Set(float64(c.lru.Len()))
}

// Len returns the number of cached renders.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge removes all cached renders.
func (c *Cache) Purge() {
	c.lru.Purge()
	renderCacheEntries.Set(0)
}
