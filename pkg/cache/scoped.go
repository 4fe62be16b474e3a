package cache

import (
	"context"
	"time"
)

// Scoped wraps a Cache with a key prefix, giving each data source its own
// namespace within a shared backend.
//
//	files := cache.Scoped(backend, "files:")
//	pages := cache.Scoped(backend, "simple:")
type scoped struct {
	inner  Cache
	prefix string
}

// Scoped returns a view of inner where every key is prefixed.
func Scoped(inner Cache, prefix string) Cache {
	return &scoped{inner: inner, prefix: prefix}
}

func (s *scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.inner.Set(ctx, s.prefix+key, data, ttl)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

// Close is a no-op; the underlying backend owns the connection.
func (s *scoped) Close() error { return nil }
