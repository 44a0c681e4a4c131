package records

import (
	"context"
	"testing"
	"time"

	"subtrack/internal/cache"
	"subtrack/internal/core"
	"subtrack/internal/kv/memory"
	"subtrack/internal/log"
)

// twoProcesses builds two trackers sharing one synchronized store, each
// behind its own long-lived read cache, like a worker and a CLI run.
func twoProcesses(t *testing.T) (worker, cli *Tracker, remote *memory.Store) {
	t.Helper()
	ctx := context.Background()
	remote = memory.New()
	open := func() *Tracker {
		local := memory.New()
		if err := SaveSyncSetting(ctx, local, true); err != nil {
			t.Fatal(err)
		}
		synced := cache.NewCachedStore(remote, cache.NewLRUCache[[]byte](4, time.Hour))
		return NewTracker(ctx, local, synced, WithLogger(log.Discard()))
	}
	return open(), open(), remote
}

func remoteNames(t *testing.T, remote *memory.Store) []string {
	t.Helper()
	raw, ok, err := remote.Get(context.Background(), CollectionKey)
	if err != nil || !ok {
		t.Fatalf("remote collection missing: ok=%v err=%v", ok, err)
	}
	recs, err := decodeCollection(raw)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = r.Name
	}
	return names
}

func TestSyncNowKeepsRecordsWrittenByAnotherProcess(t *testing.T) {
	ctx := context.Background()
	worker, cli, remote := twoProcesses(t)

	if _, err := worker.Add(ctx, "Netflix", 1500, core.Monthly); err != nil {
		t.Fatal(err)
	}
	if _, err := cli.Add(ctx, "iCloud", 130, core.Monthly); err != nil {
		t.Fatal(err)
	}
	if got := remoteNames(t, remote); len(got) != 2 {
		t.Fatalf("remote after second add = %v", got)
	}

	if err := worker.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow: %v", err)
	}
	if got := remoteNames(t, remote); len(got) != 2 || got[0] != "Netflix" || got[1] != "iCloud" {
		t.Fatalf("remote after SyncNow = %v, want [Netflix iCloud]", got)
	}
}

func TestMutationsReadPastCache(t *testing.T) {
	ctx := context.Background()
	worker, cli, remote := twoProcesses(t)

	rec, err := worker.Add(ctx, "Netflix", 1500, core.Monthly)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cli.Add(ctx, "iCloud", 130, core.Monthly); err != nil {
		t.Fatal(err)
	}

	if _, err := worker.Add(ctx, "Spotify", 980, core.Monthly); err != nil {
		t.Fatal(err)
	}
	if got := remoteNames(t, remote); len(got) != 3 {
		t.Fatalf("add dropped a record: %v", got)
	}

	if err := worker.Update(ctx, rec.ID, "Netflix 4K", 1800, core.Monthly); err != nil {
		t.Fatal(err)
	}
	if err := worker.Delete(ctx, "missing"); err != nil {
		t.Fatal(err)
	}
	got := remoteNames(t, remote)
	if len(got) != 3 || got[0] != "Netflix 4K" || got[1] != "iCloud" {
		t.Fatalf("update or delete dropped a record: %v", got)
	}
}

func TestMigrateToLocalReadsPastCache(t *testing.T) {
	ctx := context.Background()
	worker, cli, _ := twoProcesses(t)

	if _, err := worker.Add(ctx, "Netflix", 1500, core.Monthly); err != nil {
		t.Fatal(err)
	}
	if _, err := cli.Add(ctx, "iCloud", 130, core.Monthly); err != nil {
		t.Fatal(err)
	}
	if err := worker.SetSync(ctx, false); err != nil {
		t.Fatal(err)
	}
	recs, err := worker.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("local copy after toggle off has %d records, want 2", len(recs))
	}
}
