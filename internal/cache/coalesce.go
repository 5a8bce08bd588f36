package cache

import (
	"time"

	"golang.org/x/sync/singleflight"
)

// CoalescingLoader is a read-through front over a Cache that guarantees
// at most one in-flight fetch per key: concurrent misses on the same
// key share the first caller's fetch instead of hitting the upstream
// repeatedly.
type CoalescingLoader struct {
	cache Cache
	group singleflight.Group
}

// NewCoalescingLoader wraps the given cache.
func NewCoalescingLoader(c Cache) *CoalescingLoader {
	return &CoalescingLoader{cache: c}
}

// Load returns the cached value for key, or runs fetch once to populate
// it. Every caller waiting on the same key receives the same result.
func (l *CoalescingLoader) Load(key string, ttl time.Duration, fetch func() ([]byte, error)) ([]byte, error) {
	if val, found := l.cache.Get(key); found {
		return val, nil
	}

	val, err, _ := l.group.Do(key, func() (interface{}, error) {
		// A racing caller may have populated the key while this one
		// waited on the flight group.
		if cached, found := l.cache.Get(key); found {
			return cached, nil
		}
		fetched, err := fetch()
		if err != nil {
			return nil, err
		}
		_ = l.cache.Set(key, fetched, ttl)
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]byte), nil
}

// Invalidate drops a key so the next Load refetches.
func (l *CoalescingLoader) Invalidate(key string) {
	_ = l.cache.Delete(key)
}
