package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tmarolt/fleetstock/internal/ledger"
	"github.com/tmarolt/fleetstock/internal/model"
	"github.com/tmarolt/fleetstock/internal/store"
)

type engineFixture struct {
	*fixture
	ledger *ledger.Ledger
	engine *Engine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := newFixture(t)
	l := ledger.New(f.db)
	return &engineFixture{fixture: f, ledger: l, engine: NewEngine(l, f.store)}
}

func (f *engineFixture) quantity(t *testing.T, locationID int64) int {
	t.Helper()
	qty, err := f.ledger.GetQuantity(context.Background(), f.item.ID, locationID)
	if err != nil {
		t.Fatalf("GetQuantity: %v", err)
	}
	return qty
}

func TestAcceptMovesStock(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.ledger.Stock(ctx, f.item.ID, f.wh.ID, 50, 5)
	req, _ := f.store.Create(ctx, f.item.ID, 10, f.wh.ID, f.van.ID, 1, 2, "")

	updated, records, err := f.engine.Accept(ctx, req.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if updated.Status != model.TransferAccepted {
		t.Errorf("expected status accepted, got %s", updated.Status)
	}
	if updated.ProcessedAt == nil {
		t.Error("expected processed_at to be set")
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 stock records, got %d", len(records))
	}
	if records[0].Quantity != 40 {
		t.Errorf("expected source quantity 40, got %d", records[0].Quantity)
	}
	if records[1].Quantity != 10 {
		t.Errorf("expected destination quantity 10, got %d", records[1].Quantity)
	}
	// The credit created the destination record with default thresholds.
	if records[1].MinimumStockLevel != 0 || records[1].MaximumStockLevel != nil {
		t.Errorf("unexpected thresholds on created record: %+v", records[1])
	}
}

func TestAcceptIntoExistingDestination(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.ledger.Stock(ctx, f.item.ID, f.wh.ID, 50, 5)
	f.ledger.Stock(ctx, f.item.ID, f.van.ID, 3, 1)
	req, _ := f.store.Create(ctx, f.item.ID, 7, f.wh.ID, f.van.ID, 1, 2, "")

	if _, _, err := f.engine.Accept(ctx, req.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if got := f.quantity(t, f.van.ID); got != 10 {
		t.Errorf("expected destination quantity 10, got %d", got)
	}
	// The existing record's minimum survives the credit.
	rec, _ := f.ledger.GetRecord(ctx, f.item.ID, f.van.ID)
	if rec.MinimumStockLevel != 1 {
		t.Errorf("expected minimum 1 preserved, got %d", rec.MinimumStockLevel)
	}
}

func TestAcceptInsufficientStockAutoRejects(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.ledger.Stock(ctx, f.item.ID, f.wh.ID, 5, 1)
	req, _ := f.store.Create(ctx, f.item.ID, 10, f.wh.ID, f.van.ID, 1, 2, "")

	_, _, err := f.engine.Accept(ctx, req.ID)
	if !errors.Is(err, ledger.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	var insufficient *ledger.InsufficientStockError
	if !errors.As(err, &insufficient) || insufficient.Available != 5 {
		t.Errorf("expected available 5 in error, got %v", err)
	}

	// Source untouched, no destination record, request auto-rejected.
	if got := f.quantity(t, f.wh.ID); got != 5 {
		t.Errorf("expected source quantity 5, got %d", got)
	}
	if rec, _ := f.ledger.GetRecord(ctx, f.item.ID, f.van.ID); rec != nil {
		t.Errorf("expected no destination record, got %+v", rec)
	}
	got, _ := f.store.Get(ctx, req.ID)
	if got.Status != model.TransferRejected {
		t.Errorf("expected status rejected, got %s", got.Status)
	}
	if got.RejectionReason != InsufficientStockReason {
		t.Errorf("unexpected rejection reason: %q", got.RejectionReason)
	}
}

func TestAcceptUntrackedSourceAutoRejects(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	req, _ := f.store.Create(ctx, f.item.ID, 10, f.wh.ID, f.van.ID, 1, 2, "")

	_, _, err := f.engine.Accept(ctx, req.ID)
	if !errors.Is(err, ledger.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}

	got, _ := f.store.Get(ctx, req.ID)
	if got.Status != model.TransferRejected {
		t.Errorf("expected status rejected, got %s", got.Status)
	}
}

func TestAcceptNonPendingFails(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.ledger.Stock(ctx, f.item.ID, f.wh.ID, 50, 5)
	req, _ := f.store.Create(ctx, f.item.ID, 10, f.wh.ID, f.van.ID, 1, 2, "")
	f.store.MarkRejected(ctx, req.ID, time.Now(), "")

	_, _, err := f.engine.Accept(ctx, req.ID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if got := f.quantity(t, f.wh.ID); got != 50 {
		t.Errorf("expected source quantity unchanged at 50, got %d", got)
	}
}

// failingCreditLedger fails every credit to one location, simulating a write
// failure halfway through a transfer.
type failingCreditLedger struct {
	*ledger.Ledger
	failLocationID int64
}

func (f *failingCreditLedger) AdjustLocked(ctx context.Context, itemID, locationID int64, delta int) (*model.StockLocationRecord, error) {
	if delta > 0 && locationID == f.failLocationID {
		return nil, errors.New("simulated write failure")
	}
	return f.Ledger.AdjustLocked(ctx, itemID, locationID, delta)
}

func TestAcceptCompensatesFailedDestinationCredit(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.ledger.Stock(ctx, f.item.ID, f.wh.ID, 50, 5)
	req, _ := f.store.Create(ctx, f.item.ID, 10, f.wh.ID, f.van.ID, 1, 2, "")

	engine := NewEngine(&failingCreditLedger{Ledger: f.ledger, failLocationID: f.van.ID}, f.store)

	_, _, err := engine.Accept(ctx, req.ID)
	if !errors.Is(err, ErrDestinationUpdate) {
		t.Fatalf("expected ErrDestinationUpdate, got %v", err)
	}

	// Compensation restored the source debit; the request stays pending so
	// the accept can be retried.
	if got := f.quantity(t, f.wh.ID); got != 50 {
		t.Errorf("expected source quantity restored to 50, got %d", got)
	}
	if rec, _ := f.ledger.GetRecord(ctx, f.item.ID, f.van.ID); rec != nil {
		t.Errorf("expected no destination record, got %+v", rec)
	}
	got, _ := f.store.Get(ctx, req.ID)
	if got.Status != model.TransferPending {
		t.Errorf("expected status pending, got %s", got.Status)
	}
}

// conflictingStore fails MarkAccepted, simulating a concurrent processor
// winning the status transition after the ledger steps ran.
type conflictingStore struct {
	*Store
}

func (c *conflictingStore) MarkAccepted(ctx context.Context, id int64, at time.Time) error {
	return ErrInvalidTransition
}

func TestAcceptCompensatesLostStatusCommit(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.ledger.Stock(ctx, f.item.ID, f.wh.ID, 50, 5)
	f.ledger.Stock(ctx, f.item.ID, f.van.ID, 3, 1)
	req, _ := f.store.Create(ctx, f.item.ID, 10, f.wh.ID, f.van.ID, 1, 2, "")

	engine := NewEngine(f.ledger, &conflictingStore{Store: f.store})

	_, _, err := engine.Accept(ctx, req.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// Both ledger steps rolled back to the exact pre-accept state.
	if got := f.quantity(t, f.wh.ID); got != 50 {
		t.Errorf("expected source quantity 50, got %d", got)
	}
	if got := f.quantity(t, f.van.ID); got != 3 {
		t.Errorf("expected destination quantity 3, got %d", got)
	}
}

func TestAcceptCompensationRemovesCreatedRecord(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.ledger.Stock(ctx, f.item.ID, f.wh.ID, 50, 5)
	req, _ := f.store.Create(ctx, f.item.ID, 10, f.wh.ID, f.van.ID, 1, 2, "")

	engine := NewEngine(f.ledger, &conflictingStore{Store: f.store})

	if _, _, err := engine.Accept(ctx, req.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// The credit created the destination record, so compensation must remove
	// it rather than leave a zero-quantity row that did not exist before.
	if rec, _ := f.ledger.GetRecord(ctx, f.item.ID, f.van.ID); rec != nil {
		t.Errorf("expected destination record removed, got %+v", rec)
	}
	if got := f.quantity(t, f.wh.ID); got != 50 {
		t.Errorf("expected source quantity 50, got %d", got)
	}
}

func TestRejectLeavesLedgerUntouched(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.ledger.Stock(ctx, f.item.ID, f.wh.ID, 50, 5)
	req, _ := f.store.Create(ctx, f.item.ID, 10, f.wh.ID, f.van.ID, 1, 2, "")

	updated, err := f.engine.Reject(ctx, req.ID, "van is full")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if updated.Status != model.TransferRejected || updated.RejectionReason != "van is full" {
		t.Errorf("unexpected request after reject: %+v", updated)
	}

	if got := f.quantity(t, f.wh.ID); got != 50 {
		t.Errorf("expected source quantity 50, got %d", got)
	}

	// Rejecting twice is an invalid transition, not a silent no-op.
	if _, err := f.engine.Reject(ctx, req.ID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestConcurrentDisjointTransfers(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	other, err := store.CreateItem(ctx, f.db, "Wiper blades", "pc", decimal.NewFromInt(4), 1, nil)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	van2, err := store.CreateLocation(ctx, f.db, "Van 2", model.LocationKindVehicle)
	if err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}

	f.ledger.Stock(ctx, f.item.ID, f.wh.ID, 20, 2)
	f.ledger.Stock(ctx, other.ID, f.wh.ID, 20, 2)

	reqA, _ := f.store.Create(ctx, f.item.ID, 6, f.wh.ID, f.van.ID, 1, 2, "")
	reqB, _ := f.store.Create(ctx, other.ID, 8, f.wh.ID, van2.ID, 1, 2, "")

	var wg sync.WaitGroup
	wg.Add(2)
	for _, id := range []int64{reqA.ID, reqB.ID} {
		go func(id int64) {
			defer wg.Done()
			if _, _, err := f.engine.Accept(ctx, id); err != nil {
				t.Errorf("Accept %d: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	if got := f.quantity(t, f.van.ID); got != 6 {
		t.Errorf("expected 6 units of the first item in van 1, got %d", got)
	}
	qty, _ := f.ledger.GetQuantity(ctx, other.ID, van2.ID)
	if qty != 8 {
		t.Errorf("expected 8 units of the second item in van 2, got %d", qty)
	}
}

func TestConcurrentAcceptsConserveStock(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.ledger.Stock(ctx, f.item.ID, f.wh.ID, 100, 5)

	const transfers = 8
	ids := make([]int64, transfers)
	for i := range ids {
		req, err := f.store.Create(ctx, f.item.ID, 5, f.wh.ID, f.van.ID, 1, 2, "")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids[i] = req.ID
	}

	var wg sync.WaitGroup
	wg.Add(transfers)
	for _, id := range ids {
		go func(id int64) {
			defer wg.Done()
			if _, _, err := f.engine.Accept(ctx, id); err != nil {
				t.Errorf("Accept %d: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	source := f.quantity(t, f.wh.ID)
	dest := f.quantity(t, f.van.ID)
	if source != 100-transfers*5 || dest != transfers*5 {
		t.Errorf("expected %d/%d after %d transfers, got %d/%d",
			100-transfers*5, transfers*5, transfers, source, dest)
	}
	if source+dest != 100 {
		t.Errorf("stock not conserved: %d + %d != 100", source, dest)
	}
}
