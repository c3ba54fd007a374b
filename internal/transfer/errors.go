package transfer

import "errors"

// Sentinel errors for errors.Is checks at call sites.
var (
	// ErrNotFound is returned when a transfer request id does not exist.
	ErrNotFound = errors.New("transfer request not found")

	// ErrInvalidTransition is returned when accepting or rejecting a request
	// that is no longer pending. Status transitions are one-shot.
	ErrInvalidTransition = errors.New("transfer request is not pending")

	// ErrInvalidArgument is returned for malformed create requests
	// (non-positive quantity, same source and destination, unknown ids).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDestinationUpdate is returned when the destination credit failed and
	// the source debit was compensated. The request stays pending; the caller
	// may retry.
	ErrDestinationUpdate = errors.New("destination update failed")

	// ErrConflict is returned when the status commit failed after both ledger
	// steps succeeded — typically a concurrent rejection — and the ledger was
	// rolled back to its pre-accept state. The caller may retry.
	ErrConflict = errors.New("transfer state conflict")
)
