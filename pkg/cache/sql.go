package cache

import (
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"f1replaybot/pkg/telemetry"
)

func buildCreateCacheTable() string {
	return `CREATE TABLE IF NOT EXISTS telemetry_cache (
		lookup_key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		fetched_at INTEGER NOT NULL);`
}

func buildSelectEntryCommand() (string, func(*sql.Rows) (Entry, bool, error)) {
	return `SELECT payload, fetched_at FROM telemetry_cache WHERE lookup_key = ?`, processSelectEntryRows
}

func processSelectEntryRows(rows *sql.Rows) (Entry, bool, error) {
	defer rows.Close()

	// only can be one row
	if rows.Next() {
		var body string
		var fetchedAt int64
		if err := rows.Scan(&body, &fetchedAt); err != nil {
			return Entry{}, false, err
		}
		p, err := telemetry.Decode(strings.NewReader(body))
		if err != nil {
			return Entry{}, false, errors.Wrap(err, "cached payload is corrupt")
		}
		return Entry{Payload: p, FetchedAt: time.Unix(fetchedAt, 0)}, true, nil
	}
	return Entry{}, false, rows.Err()
}

func buildUpsertEntryCommand() string {
	return `INSERT OR REPLACE INTO telemetry_cache (lookup_key, payload, fetched_at) VALUES (?, ?, ?)`
}

func buildPurgeCommand() string {
	return `DELETE FROM telemetry_cache WHERE fetched_at < ?`
}

func buildListKeysCommand() (string, func(*sql.Rows) ([]string, error)) {
	return `SELECT lookup_key FROM telemetry_cache ORDER BY lookup_key`, processListKeysRows
}

func processListKeysRows(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
