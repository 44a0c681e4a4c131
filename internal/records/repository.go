package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/log"
	"subtrack/internal/metrics"
)

var (
	// ErrSyncDisabled is returned by SyncNow while the local store is
	// authoritative.
	ErrSyncDisabled = errors.New("sync is disabled")
	// ErrNotFound is returned by Get for an unknown ID.
	ErrNotFound = errors.New("record not found")
	// ErrSyncDegraded is returned by SyncNow when the synchronized store
	// could not be reached and the round-trip was served locally.
	ErrSyncDegraded = errors.New("sync fell back to local store")
)

// Repository mutates the collection through an Adapter. Every mutation
// re-reads the whole collection past any cache, changes it and writes it
// back.
type Repository struct {
	adapter *Adapter
	logger  *log.Logger
	// written is the collection size after the last successful write and
	// writes counts successful writes.
	written int
	writes  int
}

func NewRepository(adapter *Adapter) *Repository {
	return &Repository{
		adapter: adapter,
		logger:  log.Default(log.ComponentRecords),
	}
}

// Adapter returns the adapter the repository writes through.
func (r *Repository) Adapter() *Adapter {
	return r.adapter
}

// List returns the full collection in stored order.
func (r *Repository) List(ctx context.Context) []core.Record {
	return r.adapter.Read(ctx)
}

// Get looks a record up by ID.
func (r *Repository) Get(ctx context.Context, id string) (core.Record, bool) {
	for _, rec := range r.adapter.Read(ctx) {
		if rec.ID == id {
			return rec, true
		}
	}
	return core.Record{}, false
}

// Add validates the input and appends a new record with a fresh ID.
func (r *Repository) Add(ctx context.Context, name string, amount float64, period core.Period) (core.Record, error) {
	rec, err := core.NewRecord(name, amount, period)
	if err != nil {
		r.rejected(ctx, log.OpCreate, err)
		return core.Record{}, err
	}

	recs := r.adapter.ReadLatest(ctx)
	recs = append(recs, rec)
	if err := r.save(ctx, log.OpCreate, recs); err != nil {
		return core.Record{}, err
	}
	r.logger.InfoContext(ctx, "Record added",
		log.FieldOperation, log.OpCreate,
		log.FieldRecordID, rec.ID)
	return rec, nil
}

// Delete removes the record with the given ID. Unknown IDs leave the
// collection unchanged.
func (r *Repository) Delete(ctx context.Context, id string) error {
	recs := r.adapter.ReadLatest(ctx)
	kept := make([]core.Record, 0, len(recs))
	for _, rec := range recs {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	return r.save(ctx, log.OpDelete, kept)
}

// Update replaces name, amount and period of the record with the given ID,
// keeping its position and ID. Unknown IDs are a no-op and nothing is
// written.
func (r *Repository) Update(ctx context.Context, id, name string, amount float64, period core.Period) error {
	next := core.Record{ID: id, Name: strings.TrimSpace(name), Amount: amount, Period: period}
	if err := next.Validate(); err != nil {
		r.rejected(ctx, log.OpUpdate, err)
		return err
	}

	recs := r.adapter.ReadLatest(ctx)
	for i := range recs {
		if recs[i].ID == id {
			recs[i] = next
			return r.save(ctx, log.OpUpdate, recs)
		}
	}
	r.logger.DebugContext(ctx, "Update of unknown record ignored",
		log.FieldOperation, log.OpUpdate,
		log.FieldRecordID, id)
	return nil
}

// ReplaceAll overwrites the collection. A nil or empty slice clears it.
func (r *Repository) ReplaceAll(ctx context.Context, recs []core.Record) error {
	return r.save(ctx, log.OpReplace, recs)
}

// SyncNow reads the collection and writes it straight back, pushing the
// authoritative copy through the synchronized store.
func (r *Repository) SyncNow(ctx context.Context) error {
	if !r.adapter.SyncEnabled() {
		return ErrSyncDisabled
	}
	start := time.Now()
	defer func() { metrics.SyncDuration.Observe(time.Since(start).Seconds()) }()

	recs, readFellBack := r.adapter.read(ctx, true)
	writeFellBack, err := r.adapter.write(ctx, recs)
	metrics.RepositoryOps.WithLabelValues(log.OpSync, metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if readFellBack || writeFellBack {
		return ErrSyncDegraded
	}
	r.logger.InfoContext(ctx, "Sync completed",
		log.FieldOperation, log.OpSync,
		log.FieldCount, len(recs))
	return nil
}

func (r *Repository) save(ctx context.Context, op string, recs []core.Record) error {
	err := r.adapter.Write(ctx, recs)
	metrics.RepositoryOps.WithLabelValues(op, metrics.Result(err)).Inc()
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to persist collection",
			log.FieldOperation, op,
			log.FieldErrorType, log.ErrorTypeStorage,
			log.FieldError, err)
		return err
	}
	r.written = len(recs)
	r.writes++
	metrics.Records.Set(float64(len(recs)))
	return nil
}

func (r *Repository) rejected(ctx context.Context, op string, err error) {
	metrics.RepositoryOps.WithLabelValues(op, metrics.ResultError).Inc()
	r.logger.WarnContext(ctx, "Record rejected",
		log.FieldOperation, op,
		log.FieldErrorType, log.ErrorTypeValidation,
		log.FieldError, err)
}
