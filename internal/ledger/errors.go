package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks at call sites.
var (
	ErrRecordNotFound    = errors.New("stock record not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError reports a debit that would take a record's quantity
// negative. Available is surfaced so callers can tell the user how much the
// source actually holds.
type InsufficientStockError struct {
	ItemID     int64
	LocationID int64
	Available  int
	Requested  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d at location %d: have %d, need %d",
		e.ItemID, e.LocationID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
