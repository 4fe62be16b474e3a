// Package cache provides pluggable byte-oriented cache backends for
// downloaded artifacts and registry responses.
//
// Backends:
//   - FileCache: directory-backed storage for single-machine CLI usage
//   - RedisCache: Redis-backed storage for shared resolver deployments
//   - NullCache: no-op backend for tests or --no-cache runs
//
// All backends implement the Cache interface. Use [Scoped] to derive a
// prefixed view of any backend.
package cache

import (
	"context"
	"time"
)

// Cache is the storage interface shared by all backends.
type Cache interface {
	// Get retrieves a value. The second return value reports whether the
	// key was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value with the given TTL. A TTL of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}
