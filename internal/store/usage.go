package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tmarolt/fleetstock/internal/model"
)

// RecordUsage records a consumption event for an item, optionally tied to a
// location (e.g. the vehicle the part was used from).
func RecordUsage(ctx context.Context, db *sql.DB, itemID int64, locationID *int64, quantity int, usedAt time.Time) (*model.UsageRecord, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	if usedAt.IsZero() {
		usedAt = time.Now().UTC()
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO usage_records (item_id, location_id, quantity, used_at) VALUES (?, ?, ?, ?)`,
		itemID, locationID, quantity, usedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("recording usage: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting usage id: %w", err)
	}

	rec := &model.UsageRecord{ID: id, ItemID: itemID, LocationID: locationID, Quantity: quantity, UsedAt: usedAt}
	return rec, nil
}

// ListUsageSince returns usage records for an item at or after the cutoff,
// newest first.
func ListUsageSince(ctx context.Context, db *sql.DB, itemID int64, cutoff time.Time) ([]model.UsageRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, item_id, location_id, quantity, used_at
		 FROM usage_records WHERE item_id = ? AND used_at >= ?
		 ORDER BY used_at DESC`, itemID, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("listing usage: %w", err)
	}
	defer rows.Close()

	var records []model.UsageRecord
	for rows.Next() {
		var rec model.UsageRecord
		if err := rows.Scan(&rec.ID, &rec.ItemID, &rec.LocationID, &rec.Quantity, &rec.UsedAt); err != nil {
			return nil, fmt.Errorf("scanning usage record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
