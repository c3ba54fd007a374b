package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tmarolt/fleetstock/internal/db"
	"github.com/tmarolt/fleetstock/internal/model"
)

func TestRecordUsage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "Brake pads", "pc", decimal.NewFromInt(10), 2, nil)
	loc, _ := CreateLocation(ctx, database, "Van 1", model.LocationKindVehicle)

	usedAt := time.Now().AddDate(0, 0, -3).UTC()
	rec, err := RecordUsage(ctx, database, item.ID, &loc.ID, 4, usedAt)
	if err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}
	if rec.Quantity != 4 || rec.LocationID == nil || *rec.LocationID != loc.ID {
		t.Errorf("unexpected record: %+v", rec)
	}

	if _, err := RecordUsage(ctx, database, item.ID, nil, 0, usedAt); err == nil {
		t.Error("expected zero quantity to fail")
	}
}

func TestRecordUsageDefaultsTimestamp(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, _ := CreateItem(ctx, database, "Brake pads", "pc", decimal.NewFromInt(10), 2, nil)

	rec, err := RecordUsage(ctx, database, item.ID, nil, 1, time.Time{})
	if err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}
	if rec.UsedAt.IsZero() {
		t.Error("expected used_at to default to now")
	}
}

func TestListUsageSince(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	item, _ := CreateItem(ctx, database, "Brake pads", "pc", decimal.NewFromInt(10), 2, nil)
	other, _ := CreateItem(ctx, database, "Wiper blades", "pc", decimal.NewFromInt(4), 1, nil)

	RecordUsage(ctx, database, item.ID, nil, 2, now.AddDate(0, 0, -10))
	RecordUsage(ctx, database, item.ID, nil, 3, now.AddDate(0, 0, -2))
	RecordUsage(ctx, database, item.ID, nil, 9, now.AddDate(0, 0, -45)) // outside cutoff
	RecordUsage(ctx, database, other.ID, nil, 9, now.AddDate(0, 0, -2)) // other item

	records, err := ListUsageSince(ctx, database, item.ID, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("ListUsageSince: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// Newest first.
	if records[0].Quantity != 3 || records[1].Quantity != 2 {
		t.Errorf("unexpected order: %+v", records)
	}
}
