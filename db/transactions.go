package db

import (
	"database/sql"
	"fmt"
	"time"
)

const upsertValueSQL = `
	INSERT INTO kv (key, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value=excluded.value,
		updated_at=excluded.updated_at
`

// KV is a single key/value pair written by PutValues.
type KV struct {
	Key   string
	Value []byte
}

// StartTransaction starts a new database transaction.
func StartTransaction(db *sql.DB) (*sql.Tx, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return tx, nil
}

// CommitTransaction commits the given transaction.
func CommitTransaction(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction rolls back the given transaction.
func RollbackTransaction(tx *sql.Tx) {
	tx.Rollback()
}

func PutValueWithTx(tx *sql.Tx, key string, value []byte, now time.Time) error {
	if value == nil {
		value = []byte{}
	}
	_, err := tx.Exec(upsertValueSQL, key, value, now.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("put value %s: %w", key, err)
	}
	return nil
}

// PutValues writes every pair in one transaction; either all land or none do.
func PutValues(db *sql.DB, now time.Time, values ...KV) error {
	tx, err := StartTransaction(db)
	if err != nil {
		return err
	}
	for _, kv := range values {
		if err := PutValueWithTx(tx, kv.Key, kv.Value, now); err != nil {
			RollbackTransaction(tx)
			return err
		}
	}
	return CommitTransaction(tx)
}

func DeleteValues(db *sql.DB, keys ...string) error {
	tx, err := StartTransaction(db)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if _, err := tx.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
			RollbackTransaction(tx)
			return fmt.Errorf("delete value %s: %w", key, err)
		}
	}
	return CommitTransaction(tx)
}
