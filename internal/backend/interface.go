package backend

import (
	"context"
	"time"

	"subtrack/internal/cache"
	"subtrack/internal/kv"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the synchronized store and optional cleanup function
type BackendResult struct {
	// Store is the synchronized store, wrapped in the read cache.
	Store kv.Store
	// Cache is the read cache in front of the backend, for invalidation and
	// cleanup registration.
	Cache   *cache.CachedStore
	Cleanup CleanupFunc
}

// Close runs the cleanup function if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates synchronized stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Memory specific, optional JSON file loaded on creation and written
	// back on cleanup
	SeedFile string

	// Read cache
	CacheSize int
	CacheTTL  time.Duration
}

// Persistent reports whether data written to the backend outlives the
// process that wrote it.
func (c Config) Persistent() bool {
	return c.Type != MemoryBackend || c.SeedFile != ""
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
