package backend

import (
	"context"
	"fmt"

	"subtrack/internal/cache"
	"subtrack/internal/kv"
	"subtrack/internal/kv/google"
	"subtrack/internal/kv/memory"
	"subtrack/internal/log"
	"subtrack/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend. Every backend is wrapped
// in a read-through cache.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store   kv.Store
		cleanup CleanupFunc
		err     error
	)
	switch config.Type {
	case SQLiteBackend:
		store, cleanup, err = f.createSQLiteBackend(config)
	case SheetsBackend:
		store, err = f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		store, cleanup = f.createMemoryBackend(config)
	default:
		err = fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	size := config.CacheSize
	if size < 1 {
		size = 64
	}
	cached := cache.NewCachedStore(store, cache.NewLRUCache[[]byte](size, config.CacheTTL))

	return &BackendResult{
		Store:   cached,
		Cache:   cached,
		Cleanup: cleanup,
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (kv.Store, CleanupFunc, error) {
	s, err := storage.NewSQLiteStore(config.SQLiteDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize SQLite sync store: %w", err)
	}

	f.logger.Info("Initialized SQLite sync backend", "db_path", config.SQLiteDBPath)
	return s, s.Close, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (kv.Store, error) {
	cli, err := google.NewFromConfig(ctx, google.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets sync backend", "sheet", config.GoogleSheetName)
	return cli, nil
}

// createMemoryBackend loads the seed file when one is configured and writes
// the store back to it on cleanup. Without a seed file the store lives only
// as long as the process.
func (f *DefaultFactory) createMemoryBackend(config Config) (kv.Store, CleanupFunc) {
	if config.SeedFile == "" {
		f.logger.Info("Initialized memory sync backend")
		return memory.New(), nil
	}
	f.logger.Info("Initialized memory sync backend", "seed_file", config.SeedFile)
	s := memory.NewFromFile(config.SeedFile)
	return s, func() error { return s.SaveToFile(config.SeedFile) }
}
