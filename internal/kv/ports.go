package kv

import (
	"context"
	"errors"
)

// Ports for the backing key-value stores.
type (
	// Store is the capability both the local and the synchronized backends
	// expose. Values are opaque bytes; callers serialize.
	Store interface {
		// Get returns the value for key. ok is false when the key is absent.
		Get(ctx context.Context, key string) (value []byte, ok bool, err error)
		// Set fully overwrites the value for key.
		Set(ctx context.Context, key string, value []byte) error
	}

	// Invalidator is implemented by stores that keep a read cache.
	Invalidator interface {
		Invalidate(key string)
	}

	// FreshReader is implemented by caching stores. GetFresh always reads
	// the backing store; read-modify-write cycles must use it.
	FreshReader interface {
		GetFresh(ctx context.Context, key string) (value []byte, ok bool, err error)
	}
)

// ErrValueTooLarge is returned by backends that enforce a per-item quota.
var ErrValueTooLarge = errors.New("value exceeds store quota")
