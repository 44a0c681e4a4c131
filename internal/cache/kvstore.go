package cache

import (
	"bytes"
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"subtrack/internal/kv"
)

var (
	_ kv.Store       = (*CachedStore)(nil)
	_ kv.Invalidator = (*CachedStore)(nil)
	_ kv.FreshReader = (*CachedStore)(nil)
)

// CachedStore is a read-through, write-through cache in front of a remote
// kv.Store. Concurrent misses for the same key share one backend read.
// Absent keys are not cached.
type CachedStore struct {
	next  kv.Store
	cache *LRUCache[[]byte]
	group singleflight.Group
}

func NewCachedStore(next kv.Store, c *LRUCache[[]byte]) *CachedStore {
	return &CachedStore{next: next, cache: c}
}

// Cache exposes the underlying LRU so it can be registered with a Manager.
func (s *CachedStore) Cache() *LRUCache[[]byte] {
	return s.cache
}

// Get implements kv.Store
func (s *CachedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok := s.cache.Get(key); ok {
		return bytes.Clone(v), true, nil
	}

	type result struct {
		value []byte
		ok    bool
	}
	res, err, shared := s.group.Do(key, func() (interface{}, error) {
		v, ok, err := s.next.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			s.cache.Set(key, bytes.Clone(v))
		}
		return result{value: v, ok: ok}, nil
	})
	if err != nil {
		return nil, false, err
	}
	if shared {
		slog.DebugContext(ctx, "Shared in-flight read", "component", "cache", "key", key)
	}
	r := res.(result)
	return bytes.Clone(r.value), r.ok, nil
}

// GetFresh implements kv.FreshReader. It reads the backend even on a cache
// hit and refreshes the cached entry with the result.
func (s *CachedStore) GetFresh(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok, err := s.next.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		s.cache.Delete(key)
		return nil, false, nil
	}
	s.cache.Set(key, bytes.Clone(v))
	return v, true, nil
}

// Set writes through to the backend. The cached entry is replaced only when
// the backend accepted the write, and dropped otherwise.
func (s *CachedStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.next.Set(ctx, key, value); err != nil {
		s.cache.Delete(key)
		return err
	}
	s.cache.Set(key, bytes.Clone(value))
	return nil
}

// Invalidate implements kv.Invalidator
func (s *CachedStore) Invalidate(key string) {
	s.cache.Delete(key)
	s.group.Forget(key)
}
