package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"subtrack/internal/kv/memory"
)

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // a becomes most recent
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Errorf("a missing: %q %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("size = %d, want 2", c.Size())
	}
}

func TestLRUCacheTTL(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Second)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.Set("b", 2)
	now = now.Add(2 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired removed %d, want 1", removed)
	}
	if c.Size() != 0 {
		t.Errorf("size = %d, want 0", c.Size())
	}
}

func TestLRUCachePurge(t *testing.T) {
	c := NewLRUCache[int](0, time.Minute)
	c.Set("a", 1)
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("size after purge = %d", c.Size())
	}
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager()
	m.Register(NewLRUCache[int](1, time.Millisecond))
	m.Stop()

	m.StartCleanup(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
}

type countingStore struct {
	*memory.Store
	gets    atomic.Int32
	failSet bool
	block   chan struct{}
}

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.gets.Add(1)
	if s.block != nil {
		<-s.block
	}
	return s.Store.Get(ctx, key)
}

func (s *countingStore) Set(ctx context.Context, key string, value []byte) error {
	if s.failSet {
		return errors.New("backend down")
	}
	return s.Store.Set(ctx, key, value)
}

func TestCachedStoreReadThrough(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{Store: memory.New()}
	_ = backend.Store.Set(ctx, "k", []byte("v"))
	s := NewCachedStore(backend, NewLRUCache[[]byte](8, time.Minute))

	for i := 0; i < 3; i++ {
		v, ok, err := s.Get(ctx, "k")
		if err != nil || !ok || string(v) != "v" {
			t.Fatalf("Get: %q %v %v", v, ok, err)
		}
	}
	if got := backend.gets.Load(); got != 1 {
		t.Errorf("backend reads = %d, want 1", got)
	}

	s.Invalidate("k")
	if _, _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("Get after invalidate: %v", err)
	}
	if got := backend.gets.Load(); got != 2 {
		t.Errorf("backend reads after invalidate = %d, want 2", got)
	}
}

func TestCachedStoreAbsentNotCached(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{Store: memory.New()}
	s := NewCachedStore(backend, NewLRUCache[[]byte](8, time.Minute))

	for i := 0; i < 2; i++ {
		if _, ok, err := s.Get(ctx, "missing"); ok || err != nil {
			t.Fatalf("expected absent: ok=%v err=%v", ok, err)
		}
	}
	if got := backend.gets.Load(); got != 2 {
		t.Errorf("backend reads = %d, want 2", got)
	}
}

func TestCachedStoreWriteThrough(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{Store: memory.New()}
	s := NewCachedStore(backend, NewLRUCache[[]byte](8, time.Minute))

	if err := s.Set(ctx, "k", []byte("new")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, _, _ := s.Get(ctx, "k")
	if string(v) != "new" || backend.gets.Load() != 0 {
		t.Fatalf("expected cached value without backend read, got %q reads=%d", v, backend.gets.Load())
	}

	backend.failSet = true
	if err := s.Set(ctx, "k", []byte("lost")); err == nil {
		t.Fatal("expected backend error")
	}
	if s.Cache().Size() != 0 {
		t.Fatal("failed write must drop the cached entry")
	}
}

func TestCachedStoreGetFreshBypassesCache(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{Store: memory.New()}
	s := NewCachedStore(backend, NewLRUCache[[]byte](8, time.Hour))

	if err := s.Set(ctx, "k", []byte("mine")); err != nil {
		t.Fatal(err)
	}
	// another writer updates the backend behind the cache
	_ = backend.Store.Set(ctx, "k", []byte("theirs"))

	if v, _, _ := s.Get(ctx, "k"); string(v) != "mine" {
		t.Fatalf("Get = %q, want cached value", v)
	}
	v, ok, err := s.GetFresh(ctx, "k")
	if err != nil || !ok || string(v) != "theirs" {
		t.Fatalf("GetFresh = %q %v %v", v, ok, err)
	}
	if backend.gets.Load() != 1 {
		t.Fatalf("backend reads = %d, want 1", backend.gets.Load())
	}
	if v, _, _ := s.Get(ctx, "k"); string(v) != "theirs" {
		t.Fatalf("cache not refreshed by GetFresh: %q", v)
	}

	_ = backend.Store.Set(ctx, "gone", []byte("x"))
	_, _, _ = s.Get(ctx, "gone")
	backend.Store = memory.New()
	if _, ok, _ := s.GetFresh(ctx, "gone"); ok {
		t.Fatal("GetFresh must report a key removed from the backend as absent")
	}
	if s.Cache().Size() != 1 {
		t.Fatalf("absent key must be dropped from the cache, size = %d", s.Cache().Size())
	}
}

func TestCachedStoreSharesInflightReads(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{Store: memory.New(), block: make(chan struct{})}
	_ = backend.Store.Set(ctx, "k", []byte("v"))
	s := NewCachedStore(backend, NewLRUCache[[]byte](8, time.Minute))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, _, err := s.Get(ctx, "k"); err != nil || string(v) != "v" {
				t.Errorf("Get: %q %v", v, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(backend.block)
	wg.Wait()

	if got := backend.gets.Load(); got < 1 || got > 5 {
		t.Errorf("unexpected backend reads %d", got)
	}
}
