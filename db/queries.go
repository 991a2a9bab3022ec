package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Entry describes a stored key without its value.
type Entry struct {
	Key       string
	Size      int
	UpdatedAt time.Time
}

// GetValue returns the raw value stored under key. A missing key yields an
// error wrapping sql.ErrNoRows.
func GetValue(db *sql.DB, key string) ([]byte, error) {
	var value []byte
	err := db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return nil, fmt.Errorf("failed to get value %s: %w", key, err)
	}
	return value, nil
}

// ListEntries returns every stored key ordered by name.
func ListEntries(db *sql.DB) ([]Entry, error) {
	rows, err := db.Query(`SELECT key, length(value), updated_at FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var updatedAt string
		if err := rows.Scan(&e.Key, &e.Size, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return entries, nil
}

// IsNotFound reports whether err came from a lookup of a missing key.
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, sql.ErrNoRows)
}
