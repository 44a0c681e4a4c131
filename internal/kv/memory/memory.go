package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"subtrack/internal/kv"
)

var _ kv.Store = (*Store)(nil)

// Store is an in-process key-value store. It backs the "memory" sync
// backend and the tests.
type Store struct {
	mu       sync.Mutex
	items    map[string][]byte
	maxValue int
}

func New() *Store {
	return &Store{items: map[string][]byte{}}
}

// NewWithQuota returns a store that rejects values larger than maxValue
// bytes, mimicking the per-item limits of hosted sync stores.
func NewWithQuota(maxValue int) *Store {
	s := New()
	s.maxValue = maxValue
	return s
}

// NewFromFile seeds the store from a JSON object of key -> value, as written
// by SaveToFile. A missing or unreadable file yields an empty store.
func NewFromFile(path string) *Store {
	s := New()
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return s
	}
	var seed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &seed); err != nil {
		return s
	}
	for k, v := range seed {
		s.items[k] = bytes.Clone(v)
	}
	return s
}

// SaveToFile writes every entry to path in the format NewFromFile reads.
// Values must be JSON documents. The file is replaced atomically.
func (s *Store) SaveToFile(path string) error {
	s.mu.Lock()
	snapshot := make(map[string]json.RawMessage, len(s.items))
	for k, v := range s.items {
		if !json.Valid(v) {
			s.mu.Unlock()
			return fmt.Errorf("save %s: value is not JSON", k)
		}
		snapshot[k] = bytes.Clone(v)
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Get returns a copy of the stored value.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

// Set stores a copy of value under key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	if s.maxValue > 0 && len(key)+len(value) > s.maxValue {
		return fmt.Errorf("set %s: %w", key, kv.ErrValueTooLarge)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = bytes.Clone(value)
	return nil
}

// Keys returns the stored keys in no particular order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.items))
	for k := range s.items {
		out = append(out, k)
	}
	return out
}
