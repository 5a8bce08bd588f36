package cache

import "time"

// LayeredCache pairs a small hot front (LRU) with a larger TTL back
// store. Reads hit the front first and promote back-store hits; writes
// go to both layers.
type LayeredCache struct {
	front Cache
	back  Cache
}

// NewLayeredCache combines the given layers, front first.
func NewLayeredCache(front, back Cache) *LayeredCache {
	return &LayeredCache{front: front, back: back}
}

// Get checks the front layer, then the back, promoting on a back hit.
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.front.Get(key); found {
		return val, true
	}
	if val, found := c.back.Get(key); found {
		_ = c.front.Set(key, val, 0)
		return val, true
	}
	return nil, false
}

// Set writes through to both layers.
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.front.Set(key, value, ttl); err != nil {
		return err
	}
	return c.back.Set(key, value, ttl)
}

// Delete removes the key from both layers.
func (c *LayeredCache) Delete(key string) error {
	if err := c.front.Delete(key); err != nil {
		return err
	}
	return c.back.Delete(key)
}

// Clear drops every entry in both layers.
func (c *LayeredCache) Clear() error {
	if err := c.front.Clear(); err != nil {
		return err
	}
	return c.back.Clear()
}
