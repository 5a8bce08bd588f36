// Package cache provides the engine's in-process caching: a TTL memory
// store, a bounded LRU for hot entries, a layered combination of the
// two, and a coalescing loader that collapses concurrent identical
// lookups into a single fetch. Values are opaque byte slices so the
// same layering works for any serialized record.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

const keyPrefix = "repurpose:v1:"

// Cache is the minimal store contract shared by all layers. All
// implementations are safe for concurrent use.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a namespaced cache key from its parts. Parts are joined
// before hashing so ("a","bc") and ("ab","c") produce distinct keys.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return keyPrefix + hex.EncodeToString(hash[:])
}
