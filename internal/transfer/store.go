package transfer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tmarolt/fleetstock/internal/model"
)

// Store owns the lifecycle bookkeeping of transfer requests. It never touches
// the stock ledger: the engine mutates the ledger first and commits the status
// transition last, so a failed ledger step leaves the request pending instead
// of in a corrupted intermediate state.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create creates a transfer request in status pending. The item and both
// locations must exist and not be deleted.
func (s *Store) Create(ctx context.Context, itemID int64, quantity int, sourceID, destinationID, requestedBy, assignedTo int64, notes string) (*model.TransferRequest, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidArgument)
	}
	if sourceID == destinationID {
		return nil, fmt.Errorf("%w: source and destination must differ", ErrInvalidArgument)
	}

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM items WHERE id = ? AND deleted_at IS NULL)`, itemID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking item: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: unknown item %d", ErrInvalidArgument, itemID)
	}

	for _, locID := range []int64{sourceID, destinationID} {
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM locations WHERE id = ? AND deleted_at IS NULL)`, locID,
		).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("checking location: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: unknown location %d", ErrInvalidArgument, locID)
		}
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO transfer_requests (item_id, source_location_id, destination_location_id, quantity,
		                                requested_by, assigned_to, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		itemID, sourceID, destinationID, quantity, requestedBy, assignedTo, notes,
	)
	if err != nil {
		return nil, fmt.Errorf("creating transfer request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting transfer request id: %w", err)
	}

	return s.Get(ctx, id)
}

// Get returns a transfer request by ID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (*model.TransferRequest, error) {
	req := &model.TransferRequest{}
	var reason, notes sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT t.id, t.item_id, t.source_location_id, t.destination_location_id, t.quantity,
		        t.status, t.requested_by, t.assigned_to, t.requested_at, t.processed_at,
		        t.rejection_reason, t.notes,
		        i.name AS item_name, src.name AS source_name, dst.name AS destination_name
		 FROM transfer_requests t
		 JOIN items i ON i.id = t.item_id
		 JOIN locations src ON src.id = t.source_location_id
		 JOIN locations dst ON dst.id = t.destination_location_id
		 WHERE t.id = ?`, id,
	).Scan(&req.ID, &req.ItemID, &req.SourceLocationID, &req.DestinationLocationID, &req.Quantity,
		&req.Status, &req.RequestedBy, &req.AssignedTo, &req.RequestedAt, &req.ProcessedAt,
		&reason, &notes,
		&req.ItemName, &req.SourceName, &req.DestinationName)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transfer request %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting transfer request: %w", err)
	}
	req.RejectionReason = reason.String
	req.Notes = notes.String
	return req, nil
}

// ListPending returns pending requests, newest first — a technician's inbox.
// An assignedTo of 0 lists everyone's.
func (s *Store) ListPending(ctx context.Context, assignedTo int64) ([]model.TransferRequest, error) {
	return s.List(ctx, model.TransferPending, assignedTo, 0, 0)
}

// List returns transfer requests newest first, optionally filtered by status,
// assignee, item, or a location on either end (zero values mean no filter).
func (s *Store) List(ctx context.Context, status string, assignedTo, itemID, locationID int64) ([]model.TransferRequest, error) {
	query := `SELECT t.id, t.item_id, t.source_location_id, t.destination_location_id, t.quantity,
	                 t.status, t.requested_by, t.assigned_to, t.requested_at, t.processed_at,
	                 t.rejection_reason, t.notes,
	                 i.name AS item_name, src.name AS source_name, dst.name AS destination_name
	          FROM transfer_requests t
	          JOIN items i ON i.id = t.item_id
	          JOIN locations src ON src.id = t.source_location_id
	          JOIN locations dst ON dst.id = t.destination_location_id
	          WHERE 1=1`
	var args []any

	if status != "" {
		query += ` AND t.status = ?`
		args = append(args, status)
	}
	if assignedTo > 0 {
		query += ` AND t.assigned_to = ?`
		args = append(args, assignedTo)
	}
	if itemID > 0 {
		query += ` AND t.item_id = ?`
		args = append(args, itemID)
	}
	if locationID > 0 {
		query += ` AND (t.source_location_id = ? OR t.destination_location_id = ?)`
		args = append(args, locationID, locationID)
	}

	query += ` ORDER BY t.requested_at DESC, t.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transfer requests: %w", err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

// MarkAccepted transitions a request pending → accepted. Returns
// ErrInvalidTransition if the request is not currently pending, ErrNotFound if
// it does not exist.
func (s *Store) MarkAccepted(ctx context.Context, id int64, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE transfer_requests SET status = ?, processed_at = ?
		 WHERE id = ? AND status = ?`,
		model.TransferAccepted, at, id, model.TransferPending,
	)
	if err != nil {
		return fmt.Errorf("marking transfer accepted: %w", err)
	}
	return s.checkTransitioned(ctx, result, id)
}

// MarkRejected transitions a request pending → rejected with an optional
// reason. Returns ErrInvalidTransition if the request is not currently
// pending, ErrNotFound if it does not exist.
func (s *Store) MarkRejected(ctx context.Context, id int64, at time.Time, reason string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE transfer_requests SET status = ?, processed_at = ?, rejection_reason = ?
		 WHERE id = ? AND status = ?`,
		model.TransferRejected, at, sql.NullString{String: reason, Valid: reason != ""}, id, model.TransferPending,
	)
	if err != nil {
		return fmt.Errorf("marking transfer rejected: %w", err)
	}
	return s.checkTransitioned(ctx, result, id)
}

// checkTransitioned distinguishes "no such request" from "request already
// processed" when a guarded status update changed no rows.
func (s *Store) checkTransitioned(ctx context.Context, result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking transition: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM transfer_requests WHERE id = ?)`, id,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking transfer request: %w", err)
	}
	if !exists {
		return fmt.Errorf("transfer request %d: %w", id, ErrNotFound)
	}
	return fmt.Errorf("transfer request %d: %w", id, ErrInvalidTransition)
}

func scanRequests(rows *sql.Rows) ([]model.TransferRequest, error) {
	var requests []model.TransferRequest
	for rows.Next() {
		var req model.TransferRequest
		var reason, notes sql.NullString
		if err := rows.Scan(&req.ID, &req.ItemID, &req.SourceLocationID, &req.DestinationLocationID, &req.Quantity,
			&req.Status, &req.RequestedBy, &req.AssignedTo, &req.RequestedAt, &req.ProcessedAt,
			&reason, &notes,
			&req.ItemName, &req.SourceName, &req.DestinationName); err != nil {
			return nil, fmt.Errorf("scanning transfer request: %w", err)
		}
		req.RejectionReason = reason.String
		req.Notes = notes.String
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
