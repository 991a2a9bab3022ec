package db

import "database/sql"

// WithDatabase opens dbPath for a single maintenance command and closes it
// afterwards.
func WithDatabase(dbPath string, fn func(*sql.DB) error) error {
	conn, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}
