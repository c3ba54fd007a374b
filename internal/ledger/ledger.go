package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tmarolt/fleetstock/internal/model"
)

// Ledger is the authoritative store of quantity-at-location. Mutations on the
// same (item, location) pair serialize through a per-pair lock; mutations on
// different pairs run concurrently. The ledger offers no cross-pair atomicity
// — moving stock between two locations safely is the transfer engine's job,
// which holds both pair locks via LockPair for the duration of a move.
type Ledger struct {
	db   *sql.DB
	keys keyLocks
}

// New creates a Ledger over the given database.
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// GetRecord returns the stock record for an (item, location) pair, or nil if
// the item is not tracked at the location. Callers that only care about
// arithmetic should use GetQuantity; the nil/zero distinction matters to the
// replenishment advisor.
func (l *Ledger) GetRecord(ctx context.Context, itemID, locationID int64) (*model.StockLocationRecord, error) {
	rec := &model.StockLocationRecord{}
	err := l.db.QueryRowContext(ctx,
		`SELECT r.item_id, r.location_id, r.quantity, r.minimum_stock_level, r.maximum_stock_level,
		        i.name AS item_name, loc.name AS location_name, loc.kind AS location_kind
		 FROM stock_location_records r
		 JOIN items i ON i.id = r.item_id
		 JOIN locations loc ON loc.id = r.location_id
		 WHERE r.item_id = ? AND r.location_id = ?`, itemID, locationID,
	).Scan(&rec.ItemID, &rec.LocationID, &rec.Quantity, &rec.MinimumStockLevel, &rec.MaximumStockLevel,
		&rec.ItemName, &rec.LocationName, &rec.LocationKind)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting stock record: %w", err)
	}
	return rec, nil
}

// GetQuantity returns the quantity of an item at a location, 0 if the item is
// not tracked there.
func (l *Ledger) GetQuantity(ctx context.Context, itemID, locationID int64) (int, error) {
	var qty int
	err := l.db.QueryRowContext(ctx,
		`SELECT quantity FROM stock_location_records WHERE item_id = ? AND location_id = ?`,
		itemID, locationID,
	).Scan(&qty)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting quantity: %w", err)
	}
	return qty, nil
}

// Adjust applies delta (positive or negative) to the record's quantity and
// returns the resulting record. A positive delta to an untracked pair creates
// the record with quantity = delta, minimum stock level 0 and no maximum. A
// negative delta to an untracked pair fails with ErrRecordNotFound; a delta
// that would take the quantity negative fails with an InsufficientStockError
// and no change. A record reaching quantity 0 is kept, not deleted.
func (l *Ledger) Adjust(ctx context.Context, itemID, locationID int64, delta int) (*model.StockLocationRecord, error) {
	unlock := l.keys.lock(pairKey{itemID, locationID})
	defer unlock()
	return l.adjust(ctx, itemID, locationID, delta)
}

// LockPair locks both (item, location) pairs of a two-location move and
// returns the release func. While held, AdjustLocked and RemoveLocked may be
// called on either pair; plain Adjust/Remove on those pairs will block.
func (l *Ledger) LockPair(itemID, locationA, locationB int64) func() {
	return l.keys.lockPair(pairKey{itemID, locationA}, pairKey{itemID, locationB})
}

// AdjustLocked is Adjust for callers already holding the pair lock via
// LockPair.
func (l *Ledger) AdjustLocked(ctx context.Context, itemID, locationID int64, delta int) (*model.StockLocationRecord, error) {
	return l.adjust(ctx, itemID, locationID, delta)
}

func (l *Ledger) adjust(ctx context.Context, itemID, locationID int64, delta int) (*model.StockLocationRecord, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: delta must be non-zero", ErrInvalidArgument)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var current int
	exists := true
	err = tx.QueryRowContext(ctx,
		`SELECT quantity FROM stock_location_records WHERE item_id = ? AND location_id = ?`,
		itemID, locationID,
	).Scan(&current)
	if err == sql.ErrNoRows {
		exists = false
		current = 0
	} else if err != nil {
		return nil, fmt.Errorf("reading current quantity: %w", err)
	}

	if !exists && delta < 0 {
		return nil, fmt.Errorf("adjusting item %d at location %d: %w", itemID, locationID, ErrRecordNotFound)
	}

	newQty := current + delta
	if newQty < 0 {
		return nil, &InsufficientStockError{
			ItemID:     itemID,
			LocationID: locationID,
			Available:  current,
			Requested:  -delta,
		}
	}

	if exists {
		_, err = tx.ExecContext(ctx,
			`UPDATE stock_location_records SET quantity = ? WHERE item_id = ? AND location_id = ?`,
			newQty, itemID, locationID,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO stock_location_records (item_id, location_id, quantity, minimum_stock_level)
			 VALUES (?, ?, ?, 0)`,
			itemID, locationID, newQty,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("adjusting stock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing adjustment: %w", err)
	}

	return l.GetRecord(ctx, itemID, locationID)
}

// Stock applies an explicit stocking action: credits quantity (must be
// positive) and, if the pair was untracked, creates the record with the given
// minimum stock level instead of the implicit-creation default of 0.
func (l *Ledger) Stock(ctx context.Context, itemID, locationID int64, quantity, minimum int) (*model.StockLocationRecord, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidArgument)
	}
	if minimum < 0 {
		return nil, fmt.Errorf("%w: minimum stock level must not be negative", ErrInvalidArgument)
	}

	unlock := l.keys.lock(pairKey{itemID, locationID})
	defer unlock()

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO stock_location_records (item_id, location_id, quantity, minimum_stock_level)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (item_id, location_id) DO UPDATE SET quantity = quantity + ?`,
		itemID, locationID, quantity, minimum, quantity,
	)
	if err != nil {
		return nil, fmt.Errorf("stocking item: %w", err)
	}

	return l.GetRecord(ctx, itemID, locationID)
}

// SetThresholds updates the reorder thresholds on an existing record. A nil
// maximum clears the maximum stock level.
func (l *Ledger) SetThresholds(ctx context.Context, itemID, locationID int64, minimum int, maximum *int) error {
	if minimum < 0 {
		return fmt.Errorf("%w: minimum stock level must not be negative", ErrInvalidArgument)
	}
	if maximum != nil && *maximum < minimum {
		return fmt.Errorf("%w: maximum stock level %d is below minimum %d", ErrInvalidArgument, *maximum, minimum)
	}

	result, err := l.db.ExecContext(ctx,
		`UPDATE stock_location_records SET minimum_stock_level = ?, maximum_stock_level = ?
		 WHERE item_id = ? AND location_id = ?`,
		minimum, maximum, itemID, locationID,
	)
	if err != nil {
		return fmt.Errorf("setting thresholds: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("setting thresholds: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("setting thresholds for item %d at location %d: %w", itemID, locationID, ErrRecordNotFound)
	}
	return nil
}

// Remove deletes a stock record. This is the only way a record disappears;
// quantity reaching zero never removes it implicitly.
func (l *Ledger) Remove(ctx context.Context, itemID, locationID int64) error {
	unlock := l.keys.lock(pairKey{itemID, locationID})
	defer unlock()
	return l.remove(ctx, itemID, locationID)
}

// RemoveLocked is Remove for callers already holding the pair lock via
// LockPair.
func (l *Ledger) RemoveLocked(ctx context.Context, itemID, locationID int64) error {
	return l.remove(ctx, itemID, locationID)
}

func (l *Ledger) remove(ctx context.Context, itemID, locationID int64) error {
	result, err := l.db.ExecContext(ctx,
		`DELETE FROM stock_location_records WHERE item_id = ? AND location_id = ?`,
		itemID, locationID,
	)
	if err != nil {
		return fmt.Errorf("removing stock record: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("removing stock record: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("removing stock record for item %d at location %d: %w", itemID, locationID, ErrRecordNotFound)
	}
	return nil
}

// List returns stock records, optionally filtered by item and/or location
// (0 means no filter).
func (l *Ledger) List(ctx context.Context, itemID, locationID int64) ([]model.StockLocationRecord, error) {
	query := `SELECT r.item_id, r.location_id, r.quantity, r.minimum_stock_level, r.maximum_stock_level,
	                 i.name AS item_name, loc.name AS location_name, loc.kind AS location_kind
	          FROM stock_location_records r
	          JOIN items i ON i.id = r.item_id
	          JOIN locations loc ON loc.id = r.location_id
	          WHERE 1=1`
	var args []any

	if itemID > 0 {
		query += ` AND r.item_id = ?`
		args = append(args, itemID)
	}
	if locationID > 0 {
		query += ` AND r.location_id = ?`
		args = append(args, locationID)
	}

	query += ` ORDER BY i.name, loc.name`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing stock records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListBelowMinimum returns all records whose quantity is at or below their
// minimum stock level, optionally filtered by location (0 means no filter).
func (l *Ledger) ListBelowMinimum(ctx context.Context, locationID int64) ([]model.StockLocationRecord, error) {
	query := `SELECT r.item_id, r.location_id, r.quantity, r.minimum_stock_level, r.maximum_stock_level,
	                 i.name AS item_name, loc.name AS location_name, loc.kind AS location_kind
	          FROM stock_location_records r
	          JOIN items i ON i.id = r.item_id
	          JOIN locations loc ON loc.id = r.location_id
	          WHERE r.quantity <= r.minimum_stock_level`
	var args []any

	if locationID > 0 {
		query += ` AND r.location_id = ?`
		args = append(args, locationID)
	}

	query += ` ORDER BY i.name, loc.name`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing low stock: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// TotalQuantity returns the sum of an item's quantity across all locations.
func (l *Ledger) TotalQuantity(ctx context.Context, itemID int64) (int, error) {
	var total int
	err := l.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM stock_location_records WHERE item_id = ?`,
		itemID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing quantity: %w", err)
	}
	return total, nil
}

// Valuation returns the total value of stock held at a location (quantity ×
// catalog unit price, summed over items). A locationID of 0 values all stock.
func (l *Ledger) Valuation(ctx context.Context, locationID int64) (decimal.Decimal, error) {
	query := `SELECT r.quantity, i.unit_price
	          FROM stock_location_records r
	          JOIN items i ON i.id = r.item_id`
	var args []any

	if locationID > 0 {
		query += ` WHERE r.location_id = ?`
		args = append(args, locationID)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("valuing stock: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var qty int
		var price decimal.Decimal
		if err := rows.Scan(&qty, &price); err != nil {
			return decimal.Zero, fmt.Errorf("scanning stock value: %w", err)
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return total, rows.Err()
}

func scanRecords(rows *sql.Rows) ([]model.StockLocationRecord, error) {
	var records []model.StockLocationRecord
	for rows.Next() {
		var rec model.StockLocationRecord
		if err := rows.Scan(&rec.ItemID, &rec.LocationID, &rec.Quantity, &rec.MinimumStockLevel, &rec.MaximumStockLevel,
			&rec.ItemName, &rec.LocationName, &rec.LocationKind); err != nil {
			return nil, fmt.Errorf("scanning stock record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
