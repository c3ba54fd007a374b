package model

import "time"

// Location is an addressable stock target: a warehouse or a vehicle.
type Location struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Kind      string     `json:"kind"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Location kinds.
const (
	LocationKindWarehouse = "warehouse"
	LocationKindVehicle   = "vehicle"
)

// ValidLocationKind reports whether kind is a known location kind.
func ValidLocationKind(kind string) bool {
	return kind == LocationKindWarehouse || kind == LocationKindVehicle
}
