// Package cache holds per-run lookups that are expensive to repeat, such as
// robots.txt rules and URLs that already failed.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key namespaces a raw lookup value, e.g. Key("robots", host)
func Key(kind, raw string) string {
	hash := sha256.Sum256([]byte(raw))
	return "itemone:v1:" + kind + ":" + hex.EncodeToString(hash[:])
}
