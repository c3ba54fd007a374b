package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
//
// stock_location_records allows quantity 0: a zero row means the item is
// tracked at the location but currently out of stock, which the replenishment
// advisor relies on. Rows are removed only by explicit removal.
const schema = `
CREATE TABLE IF NOT EXISTS items (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    unit          TEXT NOT NULL DEFAULT 'pc',
    unit_price    TEXT NOT NULL DEFAULT '0',
    reorder_point INTEGER NOT NULL DEFAULT 0,
    target_stock  INTEGER,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE TABLE IF NOT EXISTS locations (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    kind       TEXT NOT NULL CHECK (kind IN ('warehouse', 'vehicle')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS stock_location_records (
    item_id             INTEGER NOT NULL REFERENCES items(id),
    location_id         INTEGER NOT NULL REFERENCES locations(id),
    quantity            INTEGER NOT NULL CHECK (quantity >= 0),
    minimum_stock_level INTEGER NOT NULL DEFAULT 0,
    maximum_stock_level INTEGER,
    PRIMARY KEY (item_id, location_id)
);

CREATE TABLE IF NOT EXISTS transfer_requests (
    id                      INTEGER PRIMARY KEY,
    item_id                 INTEGER NOT NULL REFERENCES items(id),
    source_location_id      INTEGER NOT NULL REFERENCES locations(id),
    destination_location_id INTEGER NOT NULL REFERENCES locations(id),
    quantity                INTEGER NOT NULL CHECK (quantity > 0),
    status                  TEXT NOT NULL DEFAULT 'pending'
                            CHECK (status IN ('pending', 'accepted', 'rejected')),
    requested_by            INTEGER NOT NULL,
    assigned_to             INTEGER NOT NULL,
    requested_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    processed_at            DATETIME,
    rejection_reason        TEXT,
    notes                   TEXT
);

CREATE TABLE IF NOT EXISTS usage_records (
    id          INTEGER PRIMARY KEY,
    item_id     INTEGER NOT NULL REFERENCES items(id),
    location_id INTEGER REFERENCES locations(id),
    quantity    INTEGER NOT NULL CHECK (quantity > 0),
    used_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_usage_records_item_time
    ON usage_records(item_id, used_at);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
