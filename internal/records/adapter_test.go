package records

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"subtrack/internal/core"
	"subtrack/internal/kv/memory"
	"subtrack/internal/log"
	"subtrack/internal/metrics"
)

var netflix = core.Record{ID: "a", Name: "Netflix", Amount: 1500, Period: core.Monthly}

func TestAdapterRead(t *testing.T) {
	tests := []struct {
		name    string
		local   string
		synced  string
		enabled bool
		want    int
	}{
		{name: "absent local", want: 0},
		{name: "corrupt local", local: "{not json", want: 0},
		{name: "null local", local: "null", want: 0},
		{name: "local collection", local: `[{"id":"a","name":"Netflix","amount":1500,"period":"monthly"}]`, want: 1},
		{name: "sync reads synchronized", local: "[]", synced: `[{"id":"a","name":"Netflix","amount":1500,"period":"monthly"}]`, enabled: true, want: 1},
		{name: "sync ignores local", local: `[{"id":"a","name":"Netflix","amount":1500,"period":"monthly"}]`, synced: "[]", enabled: true, want: 0},
		{name: "corrupt synchronized falls back", local: `[{"id":"a","name":"Netflix","amount":1500,"period":"monthly"}]`, synced: "garbage", enabled: true, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			local, synced := memory.New(), memory.New()
			if tt.local != "" {
				_ = local.Set(ctx, CollectionKey, []byte(tt.local))
			}
			if tt.synced != "" {
				_ = synced.Set(ctx, CollectionKey, []byte(tt.synced))
			}
			a := NewAdapter(local, synced, tt.enabled).WithLogger(log.Discard())
			got := a.Read(ctx)
			if got == nil {
				t.Fatal("Read must never return nil")
			}
			if len(got) != tt.want {
				t.Fatalf("Read returned %d records, want %d", len(got), tt.want)
			}
		})
	}
}

func TestAdapterReadFallsBackOnSyncFailure(t *testing.T) {
	ctx := context.Background()
	local, synced := memory.New(), newFlaky()
	a := NewAdapter(local, synced, true).WithLogger(log.Discard())
	if err := NewAdapter(local, nil, false).Write(ctx, []core.Record{netflix}); err != nil {
		t.Fatal(err)
	}
	synced.failGet = true

	before := testutil.ToFloat64(metrics.StoreFallbacks.WithLabelValues(log.OpRead))
	got := a.Read(ctx)
	if len(got) != 1 || got[0] != netflix {
		t.Fatalf("expected local collection on fallback, got %+v", got)
	}
	if after := testutil.ToFloat64(metrics.StoreFallbacks.WithLabelValues(log.OpRead)); after != before+1 {
		t.Fatalf("fallback counter = %v, want %v", after, before+1)
	}
}

func TestAdapterWriteFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		synced func() *Adapter
	}{
		{"transport failure", func() *Adapter {
			s := newFlaky()
			s.failSet = true
			return NewAdapter(memory.New(), s, true)
		}},
		{"quota exceeded", func() *Adapter {
			return NewAdapter(memory.New(), memory.NewWithQuota(16), true)
		}},
		{"no synchronized store", func() *Adapter {
			return NewAdapter(memory.New(), nil, true)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			a := tt.synced().WithLogger(log.Discard())
			if err := a.Write(ctx, []core.Record{netflix}); err != nil {
				t.Fatalf("Write must not surface synchronized failures: %v", err)
			}
			got := a.WithSync(false).Read(ctx)
			if len(got) != 1 || got[0] != netflix {
				t.Fatalf("expected write to land locally, got %+v", got)
			}
		})
	}
}

func TestAdapterWriteLocalFailure(t *testing.T) {
	local := newFlaky()
	local.failSet = true
	a := NewAdapter(local, nil, false).WithLogger(log.Discard())
	if err := a.Write(context.Background(), nil); err == nil {
		t.Fatal("expected local write failure to surface")
	}
}

func TestAdapterWriteEncodesEmptyAsArray(t *testing.T) {
	local := memory.New()
	a := NewAdapter(local, nil, false)
	if err := a.Write(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if got := raw(local, CollectionKey); got != "[]" {
		t.Fatalf("stored %q, want []", got)
	}
}

func TestAdapterWithSyncCopies(t *testing.T) {
	a := NewAdapter(memory.New(), memory.New(), false)
	b := a.WithSync(true)
	if a.SyncEnabled() || !b.SyncEnabled() {
		t.Fatal("WithSync must not modify the receiver")
	}
}
