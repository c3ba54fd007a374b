package model

import "time"

// UsageRecord is a consumption event: quantity of an item used at a point in
// time, optionally tied to a vehicle or job. Written by the usage-tracking
// side of the application, read by the replenishment advisor.
type UsageRecord struct {
	ID         int64     `json:"id"`
	ItemID     int64     `json:"item_id"`
	LocationID *int64    `json:"location_id,omitempty"`
	Quantity   int       `json:"quantity"`
	UsedAt     time.Time `json:"used_at"`
}
