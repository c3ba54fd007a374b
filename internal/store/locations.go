package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tmarolt/fleetstock/internal/model"
)

// CreateLocation creates a new stock location (warehouse or vehicle).
func CreateLocation(ctx context.Context, db *sql.DB, name, kind string) (*model.Location, error) {
	if !model.ValidLocationKind(kind) {
		return nil, fmt.Errorf("invalid location kind %q", kind)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO locations (name, kind) VALUES (?, ?)`,
		name, kind,
	)
	if err != nil {
		return nil, fmt.Errorf("creating location: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting location id: %w", err)
	}

	return GetLocation(ctx, db, id)
}

// GetLocation returns a location by ID, or nil if it does not exist.
func GetLocation(ctx context.Context, db *sql.DB, id int64) (*model.Location, error) {
	loc := &model.Location{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, kind, created_at, deleted_at
		 FROM locations WHERE id = ?`, id,
	).Scan(&loc.ID, &loc.Name, &loc.Kind, &loc.CreatedAt, &loc.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting location: %w", err)
	}
	return loc, nil
}

// ListLocations returns all non-deleted locations, optionally filtered by kind.
func ListLocations(ctx context.Context, db *sql.DB, kind string) ([]model.Location, error) {
	var rows *sql.Rows
	var err error

	if kind != "" {
		rows, err = db.QueryContext(ctx,
			`SELECT id, name, kind, created_at, deleted_at
			 FROM locations WHERE deleted_at IS NULL AND kind = ? ORDER BY name`, kind,
		)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT id, name, kind, created_at, deleted_at
			 FROM locations WHERE deleted_at IS NULL ORDER BY name`,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		var loc model.Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Kind, &loc.CreatedAt, &loc.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// UpdateLocation updates a location's name. Its kind is fixed at creation.
func UpdateLocation(ctx context.Context, db *sql.DB, id int64, name string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE locations SET name = ? WHERE id = ? AND deleted_at IS NULL`,
		name, id,
	)
	if err != nil {
		return fmt.Errorf("updating location: %w", err)
	}
	return nil
}

// DeleteLocation soft-deletes a location. Fails while the location holds any
// stock records or is referenced by a pending transfer request.
func DeleteLocation(ctx context.Context, db *sql.DB, id int64) error {
	var stocked int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stock_location_records WHERE location_id = ?`, id,
	).Scan(&stocked)
	if err != nil {
		return fmt.Errorf("checking location stock: %w", err)
	}
	if stocked > 0 {
		return fmt.Errorf("cannot delete location: still holds %d stock records", stocked)
	}

	var pending int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transfer_requests
		 WHERE status = 'pending' AND (source_location_id = ? OR destination_location_id = ?)`,
		id, id,
	).Scan(&pending)
	if err != nil {
		return fmt.Errorf("checking pending transfers: %w", err)
	}
	if pending > 0 {
		return fmt.Errorf("cannot delete location: referenced by %d pending transfers", pending)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE locations SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting location: %w", err)
	}
	return nil
}
