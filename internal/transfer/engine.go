package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmarolt/fleetstock/internal/ledger"
	"github.com/tmarolt/fleetstock/internal/model"
)

// InsufficientStockReason is the rejection reason recorded when an accept is
// auto-rejected because the source cannot cover the requested quantity.
const InsufficientStockReason = "insufficient source stock"

// StockLedger is the slice of the stock ledger the engine drives. The
// *Locked methods require the pair lock from LockPair to be held.
type StockLedger interface {
	GetRecord(ctx context.Context, itemID, locationID int64) (*model.StockLocationRecord, error)
	LockPair(itemID, locationA, locationB int64) func()
	AdjustLocked(ctx context.Context, itemID, locationID int64, delta int) (*model.StockLocationRecord, error)
	RemoveLocked(ctx context.Context, itemID, locationID int64) error
}

// RequestStore is the slice of the transfer request store the engine drives.
type RequestStore interface {
	Get(ctx context.Context, id int64) (*model.TransferRequest, error)
	MarkAccepted(ctx context.Context, id int64, at time.Time) error
	MarkRejected(ctx context.Context, id int64, at time.Time, reason string) error
}

// Engine orchestrates accepting a transfer: debit the source, credit the
// destination, then commit the status transition — with an explicit
// compensating reverse step for every forward step, so the ledger is always
// left in either the pre-transfer or the fully-applied state. Only two
// locations and one item are touched per transfer, which is why paired
// forward/reverse steps suffice and no transaction manager is involved.
//
// Nothing retries internally; failures after compensation are surfaced as
// retryable errors and the retry decision belongs to the caller.
type Engine struct {
	ledger   StockLedger
	requests RequestStore
	now      func() time.Time
}

// NewEngine creates an Engine over the given ledger and request store.
func NewEngine(stock StockLedger, requests RequestStore) *Engine {
	return &Engine{ledger: stock, requests: requests, now: time.Now}
}

// Accept executes a pending transfer: moves the requested quantity from
// source to destination and marks the request accepted. On full success it
// returns the updated request and the two post-transfer stock records.
//
// Failure outcomes:
//   - source cannot cover the quantity: no ledger change, the request is
//     marked rejected with InsufficientStockReason, and the insufficient-stock
//     error (carrying the available quantity) is returned. This auto-reject is
//     inherited product policy — a defensible alternative would leave the
//     request pending for the requester to shrink the quantity.
//   - destination credit fails: the source debit is compensated, the request
//     stays pending, and ErrDestinationUpdate is returned (retryable).
//   - status commit fails (e.g. a concurrent rejection won): both ledger
//     steps are compensated, including removing a destination record the
//     credit created, and ErrConflict is returned.
func (e *Engine) Accept(ctx context.Context, transferID int64) (*model.TransferRequest, []model.StockLocationRecord, error) {
	req, err := e.requests.Get(ctx, transferID)
	if err != nil {
		return nil, nil, err
	}
	if req.Status != model.TransferPending {
		return nil, nil, fmt.Errorf("accepting transfer %d in status %s: %w", transferID, req.Status, ErrInvalidTransition)
	}

	// From here on the ledger steps and their compensations must run to
	// completion even if the caller's context is cancelled mid-accept.
	ctx = context.WithoutCancel(ctx)

	unlock := e.ledger.LockPair(req.ItemID, req.SourceLocationID, req.DestinationLocationID)
	defer unlock()

	// Snapshot the destination before any mutation: compensation of the
	// status-commit step must restore not just its quantity but whether the
	// record existed at all.
	destBefore, err := e.ledger.GetRecord(ctx, req.ItemID, req.DestinationLocationID)
	if err != nil {
		return nil, nil, fmt.Errorf("reading destination record: %w", err)
	}

	// Step A: debit the source.
	sourceRec, err := e.ledger.AdjustLocked(ctx, req.ItemID, req.SourceLocationID, -req.Quantity)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientStock) || errors.Is(err, ledger.ErrRecordNotFound) {
			if mErr := e.requests.MarkRejected(ctx, transferID, e.now(), InsufficientStockReason); mErr != nil {
				return nil, nil, errors.Join(err, fmt.Errorf("recording rejection: %w", mErr))
			}
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("debiting source: %w", err)
	}

	// Step B: credit the destination, creating its record if none exists.
	destRec, err := e.ledger.AdjustLocked(ctx, req.ItemID, req.DestinationLocationID, req.Quantity)
	if err != nil {
		if _, cErr := e.ledger.AdjustLocked(ctx, req.ItemID, req.SourceLocationID, req.Quantity); cErr != nil {
			return nil, nil, errors.Join(
				fmt.Errorf("%w: %w", ErrDestinationUpdate, err),
				fmt.Errorf("compensating source debit: %w", cErr),
			)
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrDestinationUpdate, err)
	}

	// Commit the status transition last, so a concurrent rejection between
	// load and here loses against a fully rolled-back ledger rather than
	// winning against a half-applied one.
	if err := e.requests.MarkAccepted(ctx, transferID, e.now()); err != nil {
		if cErr := e.compensateBoth(ctx, req, destBefore); cErr != nil {
			return nil, nil, errors.Join(fmt.Errorf("%w: %w", ErrConflict, err), cErr)
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrConflict, err)
	}

	updated, err := e.requests.Get(ctx, transferID)
	if err != nil {
		return nil, nil, fmt.Errorf("reloading transfer request: %w", err)
	}
	return updated, []model.StockLocationRecord{*sourceRec, *destRec}, nil
}

// compensateBoth restores the exact pre-accept ledger state after both
// forward steps succeeded: undo the destination credit (removing the record
// outright if the credit created it), then re-credit the source.
func (e *Engine) compensateBoth(ctx context.Context, req *model.TransferRequest, destBefore *model.StockLocationRecord) error {
	var errs []error

	if destBefore == nil {
		if err := e.ledger.RemoveLocked(ctx, req.ItemID, req.DestinationLocationID); err != nil {
			errs = append(errs, fmt.Errorf("removing created destination record: %w", err))
		}
	} else {
		if _, err := e.ledger.AdjustLocked(ctx, req.ItemID, req.DestinationLocationID, -req.Quantity); err != nil {
			errs = append(errs, fmt.Errorf("compensating destination credit: %w", err))
		}
	}

	if _, err := e.ledger.AdjustLocked(ctx, req.ItemID, req.SourceLocationID, req.Quantity); err != nil {
		errs = append(errs, fmt.Errorf("compensating source debit: %w", err))
	}

	return errors.Join(errs...)
}

// Reject marks a pending transfer rejected with an optional reason. No ledger
// interaction. Fails with ErrInvalidTransition if the request is no longer
// pending.
func (e *Engine) Reject(ctx context.Context, transferID int64, reason string) (*model.TransferRequest, error) {
	if err := e.requests.MarkRejected(ctx, transferID, e.now(), reason); err != nil {
		return nil, err
	}
	return e.requests.Get(ctx, transferID)
}
