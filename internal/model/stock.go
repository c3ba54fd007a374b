package model

// StockLocationRecord is the ledger's unit of truth: the quantity of one item
// held at one location, with its reorder thresholds. At most one record exists
// per (item, location) pair. A record with quantity 0 is meaningful — the item
// is tracked at the location but currently out of stock.
type StockLocationRecord struct {
	ItemID            int64 `json:"item_id"`
	LocationID        int64 `json:"location_id"`
	Quantity          int   `json:"quantity"`
	MinimumStockLevel int   `json:"minimum_stock_level"`
	MaximumStockLevel *int  `json:"maximum_stock_level,omitempty"`

	// Joined fields (not always populated).
	ItemName     string `json:"item_name,omitempty"`
	LocationName string `json:"location_name,omitempty"`
	LocationKind string `json:"location_kind,omitempty"`
}
