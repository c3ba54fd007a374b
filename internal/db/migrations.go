package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at the
// end.
var migrations = []string{
	// Migration 1: partial index covering the technician inbox query
	// (pending requests by assignee, newest first).
	`CREATE INDEX IF NOT EXISTS idx_transfer_requests_pending
	     ON transfer_requests(assigned_to, requested_at DESC) WHERE status = 'pending'`,
}

// Migrate ensures the schema exists and runs all migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
