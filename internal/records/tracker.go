package records

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"subtrack/internal/core"
	"subtrack/internal/kv"
	"subtrack/internal/log"
	"subtrack/internal/metrics"
)

// Notifier is told about every successful mutation made while sync is
// enabled, so other devices can refresh.
type Notifier interface {
	Notify(ctx context.Context, operation string, count int) error
}

// Tracker is the single entry point for user actions. Actions run one at a
// time, each holding the queue across its whole read, mutate and write
// cycle.
type Tracker struct {
	queue    *semaphore.Weighted
	local    kv.Store
	synced   kv.Store
	coord    *Coordinator
	repo     atomic.Pointer[Repository]
	notifier Notifier
	logger   *log.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithNotifier publishes change notifications through n.
func WithNotifier(n Notifier) Option {
	return func(t *Tracker) { t.notifier = n }
}

// WithLogger sets the tracker's logger.
func WithLogger(l *log.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker reads the persisted flag once and builds the matching adapter.
func NewTracker(ctx context.Context, local, synced kv.Store, opts ...Option) *Tracker {
	t := &Tracker{
		queue:  semaphore.NewWeighted(1),
		local:  local,
		synced: synced,
		coord:  NewCoordinator(local, synced),
		logger: log.Default(log.ComponentRecords),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.coord.logger = t.logger

	enabled := LoadSyncSetting(ctx, local)
	t.install(NewAdapter(local, synced, enabled).WithLogger(t.logger))
	return t
}

func (t *Tracker) install(a *Adapter) {
	repo := NewRepository(a)
	repo.logger = t.logger
	t.repo.Store(repo)
	metrics.SyncEnabled.Set(metrics.Bool(a.SyncEnabled()))
}

func (t *Tracker) current() *Repository {
	return t.repo.Load()
}

// SyncEnabled reports the flag the current adapter was built with.
func (t *Tracker) SyncEnabled() bool {
	return t.current().Adapter().SyncEnabled()
}

func (t *Tracker) acquire(ctx context.Context) (func(), error) {
	if err := t.queue.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { t.queue.Release(1) }, nil
}

// List returns the full collection.
func (t *Tracker) List(ctx context.Context) ([]core.Record, error) {
	release, err := t.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return t.current().List(ctx), nil
}

// Get returns the record with the given ID or ErrNotFound.
func (t *Tracker) Get(ctx context.Context, id string) (core.Record, error) {
	release, err := t.acquire(ctx)
	if err != nil {
		return core.Record{}, err
	}
	defer release()
	rec, ok := t.current().Get(ctx, id)
	if !ok {
		return core.Record{}, ErrNotFound
	}
	return rec, nil
}

// Add creates a record.
func (t *Tracker) Add(ctx context.Context, name string, amount float64, period core.Period) (core.Record, error) {
	var rec core.Record
	err := t.mutate(ctx, log.OpCreate, func(r *Repository) (err error) {
		rec, err = r.Add(ctx, name, amount, period)
		return err
	})
	if err != nil {
		return core.Record{}, err
	}
	return rec, nil
}

// Delete removes a record by ID.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	return t.mutate(ctx, log.OpDelete, func(r *Repository) error {
		return r.Delete(ctx, id)
	})
}

// Update edits a record in place.
func (t *Tracker) Update(ctx context.Context, id, name string, amount float64, period core.Period) error {
	return t.mutate(ctx, log.OpUpdate, func(r *Repository) error {
		return r.Update(ctx, id, name, amount, period)
	})
}

// ReplaceAll overwrites the collection.
func (t *Tracker) ReplaceAll(ctx context.Context, recs []core.Record) error {
	return t.mutate(ctx, log.OpReplace, func(r *Repository) error {
		return r.ReplaceAll(ctx, recs)
	})
}

// mutate runs fn under the queue and notifies when it wrote the collection.
func (t *Tracker) mutate(ctx context.Context, op string, fn func(*Repository) error) error {
	release, err := t.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	repo := t.current()
	before := repo.writes
	if err := fn(repo); err != nil {
		return err
	}
	if repo.writes != before {
		t.notify(ctx, op, repo.written)
	}
	return nil
}

// SyncNow performs a load-then-save round-trip through the synchronized
// store.
func (t *Tracker) SyncNow(ctx context.Context) error {
	release, err := t.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return t.current().SyncNow(ctx)
}

// SetSync toggles synchronization: the collection is migrated toward the
// newly authoritative store, the flag is persisted and the adapter is
// swapped. A failed migration is logged and the toggle still completes.
func (t *Tracker) SetSync(ctx context.Context, enabled bool) error {
	release, err := t.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := t.coord.Migrate(ctx, enabled); err != nil {
		t.logger.WarnContext(ctx, "Migration failed, continuing toggle",
			log.FieldOperation, log.OpMigrate,
			log.FieldEnabled, enabled,
			log.FieldError, err)
	}
	if err := SaveSyncSetting(ctx, t.local, enabled); err != nil {
		t.logger.ErrorContext(ctx, "Failed to save sync setting",
			log.FieldOperation, log.OpToggle,
			log.FieldError, err)
		return err
	}
	t.install(t.current().Adapter().WithSync(enabled))
	t.logger.InfoContext(ctx, "Sync setting changed",
		log.FieldOperation, log.OpToggle,
		log.FieldEnabled, enabled)
	return nil
}

// Reload re-reads the persisted flag and swaps the adapter without
// migrating. Long-running processes use it to follow toggles made
// elsewhere.
func (t *Tracker) Reload(ctx context.Context) bool {
	release, err := t.acquire(ctx)
	if err != nil {
		return t.SyncEnabled()
	}
	defer release()
	enabled := LoadSyncSetting(ctx, t.local)
	if enabled != t.SyncEnabled() {
		t.install(t.current().Adapter().WithSync(enabled))
	}
	return enabled
}

func (t *Tracker) notify(ctx context.Context, op string, count int) {
	if t.notifier == nil || !t.SyncEnabled() {
		return
	}
	err := t.notifier.Notify(ctx, op, count)
	metrics.Notifications.WithLabelValues("published", metrics.Result(err)).Inc()
	if err != nil {
		t.logger.WarnContext(ctx, "Failed to publish change notification",
			log.FieldOperation, op,
			log.FieldError, err)
	}
}
