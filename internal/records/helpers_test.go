package records

import (
	"context"
	"errors"
	"sync"

	"subtrack/internal/kv/memory"
)

var errUnavailable = errors.New("store unavailable")

// flakyStore wraps a memory store and fails reads or writes on demand.
type flakyStore struct {
	*memory.Store
	mu      sync.Mutex
	failGet bool
	failSet bool
	sets    int
}

func newFlaky() *flakyStore {
	return &flakyStore{Store: memory.New()}
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	fail := s.failGet
	s.mu.Unlock()
	if fail {
		return nil, false, errUnavailable
	}
	return s.Store.Get(ctx, key)
}

func (s *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	fail := s.failSet
	if !fail {
		s.sets++
	}
	s.mu.Unlock()
	if fail {
		return errUnavailable
	}
	return s.Store.Set(ctx, key, value)
}

func (s *flakyStore) setCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

func raw(s interface {
	Get(context.Context, string) ([]byte, bool, error)
}, key string) string {
	v, ok, _ := s.Get(context.Background(), key)
	if !ok {
		return "<absent>"
	}
	return string(v)
}
