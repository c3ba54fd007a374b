package model

import "time"

// TransferRequest is an intent to move quantity units of an item from a source
// location to a destination location. Status transitions are monotonic:
// pending → accepted or pending → rejected, exactly once. Requests are never
// deleted; processed ones remain as an audit trail.
type TransferRequest struct {
	ID                    int64      `json:"id"`
	ItemID                int64      `json:"item_id"`
	SourceLocationID      int64      `json:"source_location_id"`
	DestinationLocationID int64      `json:"destination_location_id"`
	Quantity              int        `json:"quantity"`
	Status                string     `json:"status"`
	RequestedBy           int64      `json:"requested_by"`
	AssignedTo            int64      `json:"assigned_to"`
	RequestedAt           time.Time  `json:"requested_at"`
	ProcessedAt           *time.Time `json:"processed_at,omitempty"`
	RejectionReason       string     `json:"rejection_reason,omitempty"`
	Notes                 string     `json:"notes,omitempty"`

	// Joined fields (not always populated).
	ItemName        string `json:"item_name,omitempty"`
	SourceName      string `json:"source_name,omitempty"`
	DestinationName string `json:"destination_name,omitempty"`
}

// Transfer request statuses.
const (
	TransferPending  = "pending"
	TransferAccepted = "accepted"
	TransferRejected = "rejected"
)
