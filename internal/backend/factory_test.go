package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"subtrack/internal/config"
	"subtrack/internal/log"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{SyncBackend: "redis"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		SyncBackend:         "sheets",
		GoogleSpreadsheetID: "sheet-id",
		GoogleSyncSheetName: "Sync",
		CacheSize:           8,
		CacheTTL:            time.Minute,
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != SheetsBackend || cfg.GoogleSheetName != "Sync" || cfg.CacheSize != 8 {
		t.Fatalf("unexpected backend config %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"sheets without id", Config{Type: SheetsBackend}, true},
		{"unknown", Config{Type: "nope"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	if got := strings.Join(GetBackendTypeStrings(), ","); got != "sqlite,sheets,memory" {
		t.Fatalf("GetBackendTypeStrings() = %s", got)
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	ctx := context.Background()
	seed := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(seed, []byte(`{"subscriptions":[]}`), 0600); err != nil {
		t.Fatal(err)
	}

	res, err := NewFactory(log.Discard()).CreateBackend(ctx, Config{Type: MemoryBackend, SeedFile: seed, CacheTTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	v, ok, err := res.Store.Get(ctx, "subscriptions")
	if err != nil || !ok || string(v) != "[]" {
		t.Fatalf("seeded value = %q ok=%v err=%v", v, ok, err)
	}
	if res.Cache == nil || res.Cache.Cache().Size() != 1 {
		t.Fatal("expected the read to populate the cache")
	}
}

func TestMemoryBackendFlushesOnClose(t *testing.T) {
	ctx := context.Background()
	seed := filepath.Join(t.TempDir(), "seed.json")
	cfg := Config{Type: MemoryBackend, SeedFile: seed, CacheTTL: time.Minute}

	res, err := NewFactory(log.Discard()).CreateBackend(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := res.Store.Set(ctx, "subscriptions", []byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	if err := res.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	res, err = NewFactory(log.Discard()).CreateBackend(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()
	if v, ok, _ := res.Store.Get(ctx, "subscriptions"); !ok || string(v) != "[]" {
		t.Fatalf("value after reopen = %q ok=%v", v, ok)
	}
}

func TestConfigPersistent(t *testing.T) {
	tests := []struct {
		cfg  Config
		want bool
	}{
		{Config{Type: MemoryBackend}, false},
		{Config{Type: MemoryBackend, SeedFile: "seed.json"}, true},
		{Config{Type: SQLiteBackend}, true},
		{Config{Type: SheetsBackend}, true},
	}
	for _, tt := range tests {
		if got := tt.cfg.Persistent(); got != tt.want {
			t.Errorf("%+v.Persistent() = %v, want %v", tt.cfg, got, tt.want)
		}
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sync.db")

	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path, CacheSize: 4, CacheTTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	if err := res.Store.Set(ctx, "subscriptions", []byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	if err := res.Close(); err != nil {
		t.Fatal(err)
	}

	res, err = NewFactory(nil).CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()
	if v, ok, _ := res.Store.Get(ctx, "subscriptions"); !ok || string(v) != "[]" {
		t.Fatalf("value not persisted: %q %v", v, ok)
	}
}

func TestCreateSheetsBackendNeedsCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SheetsBackend, GoogleSpreadsheetID: "id"})
	if err == nil || !strings.Contains(err.Error(), "Google Sheets client") {
		t.Fatalf("unexpected error: %v", err)
	}
}
