package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tmarolt/fleetstock/internal/model"
)

// CreateItem creates a new catalog item.
func CreateItem(ctx context.Context, db *sql.DB, name, unit string, unitPrice decimal.Decimal, reorderPoint int, targetStock *int) (*model.Item, error) {
	if unit == "" {
		unit = "pc"
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO items (name, unit, unit_price, reorder_point, target_stock) VALUES (?, ?, ?, ?, ?)`,
		name, unit, unitPrice.String(), reorderPoint, targetStock,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, or nil if it does not exist.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item := &model.Item{}
	var price string
	err := db.QueryRowContext(ctx,
		`SELECT id, name, unit, unit_price, reorder_point, target_stock, created_at, updated_at, deleted_at
		 FROM items WHERE id = ?`, id,
	).Scan(&item.ID, &item.Name, &item.Unit, &price, &item.ReorderPoint, &item.TargetStock,
		&item.CreatedAt, &item.UpdatedAt, &item.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}

	item.UnitPrice, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parsing unit price: %w", err)
	}
	return item, nil
}

// ListItems returns all non-deleted items ordered by name.
func ListItems(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, unit, unit_price, reorder_point, target_stock, created_at, updated_at, deleted_at
		 FROM items WHERE deleted_at IS NULL ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		var price string
		if err := rows.Scan(&item.ID, &item.Name, &item.Unit, &price, &item.ReorderPoint, &item.TargetStock,
			&item.CreatedAt, &item.UpdatedAt, &item.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.UnitPrice, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parsing unit price: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItem updates an item's descriptive and pricing fields. Identity is
// immutable; only these fields may change.
func UpdateItem(ctx context.Context, db *sql.DB, id int64, name, unit string, unitPrice decimal.Decimal, reorderPoint int, targetStock *int) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, unit = ?, unit_price = ?, reorder_point = ?, target_stock = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		name, unit, unitPrice.String(), reorderPoint, targetStock, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// DeleteItem soft-deletes an item. Fails if the item is still stocked
// anywhere, so ledger records never point at a deleted catalog entry.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stock_location_records WHERE item_id = ?`, id,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking item stock: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("cannot delete item: still stocked at %d locations", count)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}
