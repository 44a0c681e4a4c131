package records

import (
	"context"
	"encoding/json"

	"subtrack/internal/kv"
	"subtrack/internal/log"
)

// SyncSettingKey is the local-store key holding the synchronization flag.
const SyncSettingKey = "sync_enabled"

// LoadSyncSetting reads the flag from the local store. Absent, unreadable or
// malformed values mean disabled.
func LoadSyncSetting(ctx context.Context, local kv.Store) bool {
	raw, ok, err := local.Get(ctx, SyncSettingKey)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Failed to load sync setting",
			log.FieldKey, SyncSettingKey,
			log.FieldError, err)
		return false
	}
	if !ok {
		return false
	}
	var enabled bool
	if err := json.Unmarshal(raw, &enabled); err != nil {
		return false
	}
	return enabled
}

// SaveSyncSetting persists the flag to the local store.
func SaveSyncSetting(ctx context.Context, local kv.Store, enabled bool) error {
	raw, _ := json.Marshal(enabled)
	return local.Set(ctx, SyncSettingKey, raw)
}
