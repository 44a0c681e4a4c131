package records

import (
	"context"
	"fmt"

	"subtrack/internal/kv"
	"subtrack/internal/log"
	"subtrack/internal/metrics"
)

// Migration directions
const (
	DirectionToSynchronized = "to_synchronized"
	DirectionToLocal        = "to_local"
)

// Coordinator copies the collection between the local and synchronized
// stores when the flag changes. Both directions copy the stored bytes
// verbatim and are idempotent.
type Coordinator struct {
	local  kv.Store
	synced kv.Store
	logger *log.Logger
}

func NewCoordinator(local, synced kv.Store) *Coordinator {
	return &Coordinator{
		local:  local,
		synced: synced,
		logger: log.Default(log.ComponentRecords),
	}
}

// Migrate copies toward the store that becomes authoritative when the flag
// is set to enabled.
func (c *Coordinator) Migrate(ctx context.Context, enabled bool) error {
	if enabled {
		return c.MigrateToSynchronized(ctx)
	}
	return c.MigrateToLocal(ctx)
}

// MigrateToSynchronized copies the local collection to the synchronized
// store. An absent local collection is a no-op, and content that does not
// decode is reported without being copied.
func (c *Coordinator) MigrateToSynchronized(ctx context.Context) (err error) {
	defer func() { c.observe(ctx, DirectionToSynchronized, err) }()

	raw, ok, err := c.local.Get(ctx, CollectionKey)
	if err != nil {
		return fmt.Errorf("read local collection: %w", err)
	}
	if !ok {
		return nil
	}
	if _, err := decodeCollection(raw); err != nil {
		return fmt.Errorf("local collection: %w", err)
	}
	if c.synced == nil {
		return errNoSyncStore
	}
	if err := c.synced.Set(ctx, CollectionKey, raw); err != nil {
		return fmt.Errorf("write synchronized collection: %w", err)
	}
	return nil
}

// MigrateToLocal overwrites the local collection with the synchronized one
// when the latter exists.
func (c *Coordinator) MigrateToLocal(ctx context.Context) (err error) {
	defer func() { c.observe(ctx, DirectionToLocal, err) }()

	if c.synced == nil {
		return errNoSyncStore
	}
	raw, ok, err := getLatest(ctx, c.synced, CollectionKey)
	if err != nil {
		return fmt.Errorf("read synchronized collection: %w", err)
	}
	if !ok {
		return nil
	}
	if err := c.local.Set(ctx, CollectionKey, raw); err != nil {
		return fmt.Errorf("write local collection: %w", err)
	}
	return nil
}

func (c *Coordinator) observe(ctx context.Context, direction string, err error) {
	metrics.Migrations.WithLabelValues(direction, metrics.Result(err)).Inc()
	if err != nil {
		return
	}
	c.logger.DebugContext(ctx, "Collection migrated",
		log.FieldOperation, log.OpMigrate,
		log.FieldDirection, direction)
}
