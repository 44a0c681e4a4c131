package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subtrack/internal/amqp"
	"subtrack/internal/core"
	"subtrack/internal/kv"
	"subtrack/internal/log"
	"subtrack/internal/records"
)

// Tracker is the subset of records.Tracker the worker drives.
type Tracker interface {
	Reload(ctx context.Context) bool
	SyncNow(ctx context.Context) error
	List(ctx context.Context) ([]core.Record, error)
}

var _ Tracker = (*records.Tracker)(nil)

// SyncWorker keeps this device's view of the synchronized collection fresh:
// it pushes the collection periodically and re-reads it when another device
// announces a change.
type SyncWorker struct {
	tracker Tracker
	cache   kv.Invalidator
	origin  string
	logger  *log.Logger
}

// NewSyncWorker creates a worker. cache may be nil when the synchronized
// store is not cached.
func NewSyncWorker(tracker Tracker, cache kv.Invalidator, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	return &SyncWorker{
		tracker: tracker,
		cache:   cache,
		logger:  logger,
	}
}

// WithOrigin makes the worker ignore notifications published from origin,
// normally this host.
func (w *SyncWorker) WithOrigin(origin string) *SyncWorker {
	w.origin = origin
	return w
}

// HandleCollectionChanged processes a single change notification from AMQP
func (w *SyncWorker) HandleCollectionChanged(ctx context.Context, msg *amqp.CollectionChangedMessage) error {
	if w.origin != "" && msg.Origin == w.origin {
		w.logger.DebugContext(ctx, "Ignoring own change notification",
			log.FieldOperation, msg.Operation,
			"origin", msg.Origin)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing collection change",
		log.FieldOperation, msg.Operation,
		log.FieldCount, msg.Count,
		"origin", msg.Origin)

	if w.cache != nil {
		key := msg.Key
		if key == "" {
			key = records.CollectionKey
		}
		w.cache.Invalidate(key)
	}

	if !w.tracker.Reload(ctx) {
		w.logger.DebugContext(ctx, "Sync disabled, ignoring change notification")
		return nil
	}

	recs, err := w.tracker.List(ctx)
	if err != nil {
		return fmt.Errorf("refresh collection: %w", err)
	}
	w.logger.InfoContext(ctx, "Collection refreshed", log.FieldCount, len(recs))
	return nil
}

// ProcessTick runs one periodic sync when sync is enabled. A degraded sync
// is logged and not treated as an error.
func (w *SyncWorker) ProcessTick(ctx context.Context) error {
	if !w.tracker.Reload(ctx) {
		return nil
	}
	err := w.tracker.SyncNow(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, records.ErrSyncDegraded):
		w.logger.WarnContext(ctx, "Periodic sync served by local store", log.FieldError, err)
		return nil
	case errors.Is(err, records.ErrSyncDisabled):
		return nil
	default:
		return fmt.Errorf("periodic sync: %w", err)
	}
}

// StartupSyncCheck pushes the collection once on startup.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Performing startup sync check...")
	return w.ProcessTick(ctx)
}

// Run calls ProcessTick every interval until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessTick(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic sync failed", log.FieldError, err)
			}
		}
	}
}
