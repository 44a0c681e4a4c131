package memory

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"subtrack/internal/kv"
)

func TestMemoryStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, ok, err := s.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}

	in := []byte(`[1,2]`)
	if err := s.Set(ctx, "k", in); err != nil {
		t.Fatalf("Set: %v", err)
	}
	in[0] = 'x' // caller mutation must not leak into the store

	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(got) != `[1,2]` {
		t.Fatalf("unexpected get: %q ok=%v err=%v", got, ok, err)
	}

	if err := s.Set(ctx, "k", []byte(`[]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, _, _ = s.Get(ctx, "k")
	if string(got) != `[]` {
		t.Fatalf("expected overwrite, got %q", got)
	}
}

func TestMemoryStoreQuota(t *testing.T) {
	s := NewWithQuota(10)
	err := s.Set(context.Background(), "key", []byte("0123456789"))
	if !errors.Is(err, kv.ErrValueTooLarge) {
		t.Fatalf("expected ErrValueTooLarge, got %v", err)
	}
	if err := s.Set(context.Background(), "k", []byte("1")); err != nil {
		t.Fatalf("small value rejected: %v", err)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()

	// Missing file -> empty store
	s := NewFromFile(filepath.Join(dir, "nope.json"))
	if len(s.Keys()) != 0 {
		t.Fatalf("expected empty store")
	}

	path := filepath.Join(dir, "seed.json")
	if err := os.WriteFile(path, []byte(`{"subscriptions":[{"id":"a","name":"n","amount":1,"period":"monthly"}],"sync_enabled":true}`), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s = NewFromFile(path)
	v, ok, _ := s.Get(context.Background(), "sync_enabled")
	if !ok || string(v) != "true" {
		t.Fatalf("unexpected seed value %q ok=%v", v, ok)
	}
	if len(s.Keys()) != 2 {
		t.Fatalf("expected 2 keys, got %v", s.Keys())
	}
}

func TestMemoryStoreSaveToFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "sync.json")

	s := New()
	_ = s.Set(ctx, "subscriptions", []byte(`[{"id":"a","name":"Netflix","amount":1500,"period":"monthly"}]`))
	_ = s.Set(ctx, "other", []byte(`true`))
	if err := s.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}

	loaded := NewFromFile(path)
	for _, key := range []string{"subscriptions", "other"} {
		want, _, _ := s.Get(ctx, key)
		got, ok, _ := loaded.Get(ctx, key)
		if !ok || !jsonEqual(t, got, want) {
			t.Errorf("%s after reload = %s, want %s", key, got, want)
		}
	}

	if err := s.Set(ctx, "broken", []byte("not json")); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveToFile(path); err == nil {
		t.Fatal("expected error for a non-JSON value")
	}
	if got := NewFromFile(path); len(got.Keys()) != 2 {
		t.Fatalf("failed save must keep the previous file, got keys %v", got.Keys())
	}
}

func jsonEqual(t *testing.T, a, b []byte) bool {
	t.Helper()
	var x, y any
	if err := json.Unmarshal(a, &x); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &y); err != nil {
		return false
	}
	return reflect.DeepEqual(x, y)
}
