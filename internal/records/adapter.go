// Package records keeps the subscription collection in whichever store is
// authoritative, moves it between stores when synchronization is toggled
// and serializes user actions against it.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"subtrack/internal/core"
	"subtrack/internal/kv"
	"subtrack/internal/log"
	"subtrack/internal/metrics"
)

// CollectionKey is the key the collection is stored under in both stores.
const CollectionKey = "subscriptions"

var errNoSyncStore = errors.New("synchronized store not configured")

// Adapter reads and writes the whole collection against the store selected
// by the synchronization flag. Synchronized-store failures fall back to the
// local store for that single operation.
type Adapter struct {
	local   kv.Store
	synced  kv.Store
	enabled bool
	logger  *log.Logger
}

// NewAdapter returns an adapter targeting synced when enabled is true and
// local otherwise. synced may be nil, in which case every synchronized
// operation falls back.
func NewAdapter(local, synced kv.Store, enabled bool) *Adapter {
	return &Adapter{
		local:   local,
		synced:  synced,
		enabled: enabled,
		logger:  log.Default(log.ComponentRecords),
	}
}

// WithLogger returns a copy of the adapter logging to logger.
func (a *Adapter) WithLogger(logger *log.Logger) *Adapter {
	cp := *a
	cp.logger = logger
	return &cp
}

// WithSync returns a copy of the adapter with the flag set to enabled.
func (a *Adapter) WithSync(enabled bool) *Adapter {
	cp := *a
	cp.enabled = enabled
	return &cp
}

// SyncEnabled reports whether the synchronized store is authoritative.
func (a *Adapter) SyncEnabled() bool {
	return a.enabled
}

// Read returns the current collection. It never fails: absent or corrupt
// content yields an empty collection. A caching synchronized store may
// answer from its cache.
func (a *Adapter) Read(ctx context.Context) []core.Record {
	recs, _ := a.read(ctx, false)
	return recs
}

// ReadLatest is Read with the synchronized store's cache bypassed. It is the
// read half of every read-modify-write cycle, so a write never puts back a
// collection older than what the store holds.
func (a *Adapter) ReadLatest(ctx context.Context) []core.Record {
	recs, _ := a.read(ctx, true)
	return recs
}

// Write fully overwrites the stored collection. An error is returned only
// when the local store, as the final destination, rejects the write.
func (a *Adapter) Write(ctx context.Context, recs []core.Record) error {
	_, err := a.write(ctx, recs)
	return err
}

// read reports whether the synchronized read fell back to the local store.
func (a *Adapter) read(ctx context.Context, fresh bool) ([]core.Record, bool) {
	if a.enabled {
		recs, err := readCollection(ctx, a.synced, fresh)
		if err == nil {
			return recs, false
		}
		a.fallback(ctx, log.OpRead, err)
	}

	recs, err := readCollection(ctx, a.local, fresh)
	if err != nil {
		a.logger.WarnContext(ctx, "Local collection unreadable, using empty collection",
			log.FieldStore, log.StoreLocal,
			log.FieldKey, CollectionKey,
			log.FieldError, err)
		return []core.Record{}, a.enabled
	}
	return recs, a.enabled
}

func (a *Adapter) write(ctx context.Context, recs []core.Record) (bool, error) {
	raw, err := encodeCollection(recs)
	if err != nil {
		return false, fmt.Errorf("encode collection: %w", err)
	}

	fellBack := false
	if a.enabled {
		err := errNoSyncStore
		if a.synced != nil {
			err = a.synced.Set(ctx, CollectionKey, raw)
		}
		if err == nil {
			return false, nil
		}
		a.fallback(ctx, log.OpWrite, err)
		fellBack = true
	}

	if err := a.local.Set(ctx, CollectionKey, raw); err != nil {
		return fellBack, fmt.Errorf("write local collection: %w", err)
	}
	return fellBack, nil
}

func (a *Adapter) fallback(ctx context.Context, op string, err error) {
	metrics.StoreFallbacks.WithLabelValues(op).Inc()
	a.logger.WarnContext(ctx, "Synchronized store failed, falling back to local store",
		log.FieldOperation, op,
		log.FieldStore, log.StoreSynchronized,
		log.FieldKey, CollectionKey,
		log.FieldError, err)
}

// readCollection returns an empty collection for an absent key and an error
// for transport or decode failures. fresh bypasses a store's read cache.
func readCollection(ctx context.Context, s kv.Store, fresh bool) ([]core.Record, error) {
	if s == nil {
		return nil, errNoSyncStore
	}
	get := s.Get
	if fresh {
		get = func(ctx context.Context, key string) ([]byte, bool, error) {
			return getLatest(ctx, s, key)
		}
	}
	raw, ok, err := get(ctx, CollectionKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []core.Record{}, nil
	}
	return decodeCollection(raw)
}

// getLatest reads key past the store's read cache, if it has one.
func getLatest(ctx context.Context, s kv.Store, key string) ([]byte, bool, error) {
	if fr, ok := s.(kv.FreshReader); ok {
		return fr.GetFresh(ctx, key)
	}
	return s.Get(ctx, key)
}

func decodeCollection(raw []byte) ([]core.Record, error) {
	var recs []core.Record
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	if recs == nil {
		recs = []core.Record{}
	}
	return recs, nil
}

func encodeCollection(recs []core.Record) ([]byte, error) {
	if recs == nil {
		recs = []core.Record{}
	}
	return json.Marshal(recs)
}
