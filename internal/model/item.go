package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a catalog entry for a part. Identity is immutable; descriptive and
// pricing fields may change. Quantities live in the stock ledger, not here.
type Item struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	ReorderPoint int             `json:"reorder_point"`
	TargetStock  *int            `json:"target_stock,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    *time.Time      `json:"deleted_at,omitempty"`
}
