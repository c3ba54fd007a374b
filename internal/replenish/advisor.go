package replenish

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tmarolt/fleetstock/internal/ledger"
	"github.com/tmarolt/fleetstock/internal/model"
	"github.com/tmarolt/fleetstock/internal/store"
)

const (
	// usageWindowDays is the trailing window consumption is computed over.
	usageWindowDays = 30

	// EffectivelyInfinite is returned by depletion estimates when there is no
	// recent consumption. A large finite value rather than a sentinel type, so
	// callers can always format it.
	EffectivelyInfinite = 999
)

// Advisor computes reorder signals from ledger state and usage history. It is
// read-only: it never mutates the ledger and is safe to call concurrently and
// arbitrarily often.
type Advisor struct {
	db     *sql.DB
	ledger *ledger.Ledger
	now    func() time.Time
}

// NewAdvisor creates an Advisor over the given database and ledger.
func NewAdvisor(db *sql.DB, l *ledger.Ledger) *Advisor {
	return &Advisor{db: db, ledger: l, now: time.Now}
}

// NeedsReplenishment reports whether the item's quantity at the location is
// at or below the record's minimum stock level. An untracked pair needs
// nothing — that is distinct from a tracked record sitting at quantity 0,
// which does.
func (a *Advisor) NeedsReplenishment(ctx context.Context, itemID, locationID int64) (bool, error) {
	rec, err := a.ledger.GetRecord(ctx, itemID, locationID)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	return rec.Quantity <= rec.MinimumStockLevel, nil
}

// SuggestedQuantity returns the replenishment quantity policy for a tracked
// pair: with a maximum stock level set, top up to the maximum (clamped to
// ≥ 0); without one, max(1, 2×minimum − current). Fails with
// ledger.ErrRecordNotFound for untracked pairs.
func (a *Advisor) SuggestedQuantity(ctx context.Context, itemID, locationID int64) (int, error) {
	rec, err := a.ledger.GetRecord(ctx, itemID, locationID)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		return 0, fmt.Errorf("suggesting replenishment for item %d at location %d: %w", itemID, locationID, ledger.ErrRecordNotFound)
	}
	return suggestedFor(rec), nil
}

func suggestedFor(rec *model.StockLocationRecord) int {
	if rec.MaximumStockLevel != nil {
		n := *rec.MaximumStockLevel - rec.Quantity
		if n < 0 {
			return 0
		}
		return n
	}
	n := 2*rec.MinimumStockLevel - rec.Quantity
	if n < 1 {
		return 1
	}
	return n
}

// DaysUntilDepletion estimates how long the current quantity lasts given the
// usage records: consumption is summed over the trailing 30 days for the item
// (records for other items or outside the window are ignored), and the
// current quantity is divided by the daily rate. No recent consumption yields
// EffectivelyInfinite.
func (a *Advisor) DaysUntilDepletion(ctx context.Context, itemID, locationID int64, usage []model.UsageRecord) (int, error) {
	qty, err := a.ledger.GetQuantity(ctx, itemID, locationID)
	if err != nil {
		return 0, err
	}

	cutoff := a.now().AddDate(0, 0, -usageWindowDays)
	monthly := 0
	for _, rec := range usage {
		if rec.ItemID != itemID || rec.UsedAt.Before(cutoff) {
			continue
		}
		monthly += rec.Quantity
	}

	if monthly <= 0 {
		return EffectivelyInfinite, nil
	}
	return int(float64(qty) / (float64(monthly) / usageWindowDays)), nil
}

// EstimateDepletion is DaysUntilDepletion with the usage history loaded from
// the usage-tracking tables.
func (a *Advisor) EstimateDepletion(ctx context.Context, itemID, locationID int64) (int, error) {
	cutoff := a.now().AddDate(0, 0, -usageWindowDays)
	usage, err := store.ListUsageSince(ctx, a.db, itemID, cutoff)
	if err != nil {
		return 0, err
	}
	return a.DaysUntilDepletion(ctx, itemID, locationID, usage)
}

// Signal is one low-stock finding with its suggested order quantity.
type Signal struct {
	Record            model.StockLocationRecord `json:"record"`
	SuggestedQuantity int                       `json:"suggested_quantity"`
}

// Report returns a signal for every record at or below its minimum stock
// level, optionally limited to one location (0 means all locations).
func (a *Advisor) Report(ctx context.Context, locationID int64) ([]Signal, error) {
	records, err := a.ledger.ListBelowMinimum(ctx, locationID)
	if err != nil {
		return nil, err
	}

	signals := make([]Signal, 0, len(records))
	for _, rec := range records {
		signals = append(signals, Signal{Record: rec, SuggestedQuantity: suggestedFor(&rec)})
	}
	return signals, nil
}
