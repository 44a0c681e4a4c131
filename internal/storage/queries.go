package storage

import (
	"context"
)

type KVEntry struct {
	Key   string
	Value []byte
}

const getValue = `-- name: GetValue :one
SELECT key, value FROM kv WHERE key = ?
`

func (q *Queries) GetValue(ctx context.Context, key string) (KVEntry, error) {
	row := q.db.QueryRowContext(ctx, getValue, key)
	var i KVEntry
	err := row.Scan(&i.Key, &i.Value)
	return i, err
}

const upsertValue = `-- name: UpsertValue :exec
INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
`

type UpsertValueParams struct {
	Key   string
	Value []byte
}

func (q *Queries) UpsertValue(ctx context.Context, arg UpsertValueParams) error {
	_, err := q.db.ExecContext(ctx, upsertValue, arg.Key, arg.Value)
	return err
}

const listKeys = `-- name: ListKeys :many
SELECT key FROM kv ORDER BY key
`

func (q *Queries) ListKeys(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listKeys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		items = append(items, key)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
