package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUCache bounds the hottest entries (resolved diseases, the drug
// corpus) to a fixed size with a single shared TTL. Per-entry TTLs are
// not supported by the underlying store; Set ignores its ttl argument.
type LRUCache struct {
	lru *expirable.LRU[string, []byte]
}

// NewLRUCache creates an LRU holding at most size entries for ttl each.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	return &LRUCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get retrieves a value if present and unexpired.
func (c *LRUCache) Get(key string) ([]byte, bool) {
	return c.lru.Get(key)
}

// Set stores a value under the cache-wide TTL.
func (c *LRUCache) Set(key string, value []byte, _ time.Duration) error {
	c.lru.Add(key, value)
	return nil
}

// Delete removes a key.
func (c *LRUCache) Delete(key string) error {
	c.lru.Remove(key)
	return nil
}

// Clear drops every entry.
func (c *LRUCache) Clear() error {
	c.lru.Purge()
	return nil
}
