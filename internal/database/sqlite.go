// Package database opens the local SQLite database shared by the draft,
// history and module runtime stores.
package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DefaultDSN is used when no database URL is configured.
const DefaultDSN = "file:dashgen.db?_pragma=foreign_keys(1)"

// Open opens dsn with the pure-Go SQLite driver. The pool is limited to one
// connection so writers never contend for the database lock.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	return db, nil
}
