package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tmarolt/fleetstock/internal/model"
	"github.com/tmarolt/fleetstock/internal/transfer"
)

// TransfersHandler handles transfer request endpoints.
type TransfersHandler struct {
	Store  *transfer.Store
	Engine *transfer.Engine
}

type createTransferRequest struct {
	ItemID                int64  `json:"item_id"`
	Quantity              int    `json:"quantity"`
	SourceLocationID      int64  `json:"source_location_id"`
	DestinationLocationID int64  `json:"destination_location_id"`
	AssignedTo            int64  `json:"assigned_to"`
	Notes                 string `json:"notes"`
}

// Create handles POST /api/transfers.
func (h *TransfersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ItemID <= 0 || req.SourceLocationID <= 0 || req.DestinationLocationID <= 0 || req.AssignedTo <= 0 {
		jsonError(w, http.StatusBadRequest, "item_id, source_location_id, destination_location_id, and assigned_to are required")
		return
	}

	claims := GetClaims(r.Context())
	created, err := h.Store.Create(r.Context(), req.ItemID, req.Quantity,
		req.SourceLocationID, req.DestinationLocationID, claims.ActorID, req.AssignedTo, req.Notes)
	if err != nil {
		domainError(w, err)
		return
	}

	slog.Info("transfer requested", "id", created.ID, "requested_by", claims.Name,
		"item", created.ItemName, "quantity", created.Quantity,
		"from", created.SourceName, "to", created.DestinationName)
	jsonResponse(w, http.StatusCreated, created)
}

// List handles GET /api/transfers.
func (h *TransfersHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && status != model.TransferPending && status != model.TransferAccepted && status != model.TransferRejected {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	assignedTo, ok := queryID(w, r, "assigned_to")
	if !ok {
		return
	}
	itemID, ok := queryID(w, r, "item_id")
	if !ok {
		return
	}
	locationID, ok := queryID(w, r, "location_id")
	if !ok {
		return
	}

	requests, err := h.Store.List(r.Context(), status, assignedTo, itemID, locationID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list transfer requests")
		return
	}
	if requests == nil {
		requests = []model.TransferRequest{}
	}
	jsonResponse(w, http.StatusOK, requests)
}

// ListPending handles GET /api/transfers/pending — the technician inbox.
// Without an assigned_to filter it defaults to the calling actor's inbox.
func (h *TransfersHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	assignedTo, ok := queryID(w, r, "assigned_to")
	if !ok {
		return
	}
	if assignedTo == 0 {
		assignedTo = GetClaims(r.Context()).ActorID
	}

	requests, err := h.Store.ListPending(r.Context(), assignedTo)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list pending transfers")
		return
	}
	if requests == nil {
		requests = []model.TransferRequest{}
	}
	jsonResponse(w, http.StatusOK, requests)
}

// Get handles GET /api/transfers/{id}.
func (h *TransfersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}

	req, err := h.Store.Get(r.Context(), id)
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, req)
}

// acceptResponse pairs the finalized request with the two post-transfer stock
// records.
type acceptResponse struct {
	Transfer *model.TransferRequest      `json:"transfer"`
	Records  []model.StockLocationRecord `json:"records"`
}

// Accept handles POST /api/transfers/{id}/accept. Only the assigned
// technician (or a manager) may process a request.
func (h *TransfersHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}

	if !h.authorizeProcessing(w, r, id) {
		return
	}

	claims := GetClaims(r.Context())
	updated, records, err := h.Engine.Accept(r.Context(), id)
	if err != nil {
		slog.Warn("transfer accept failed", "id", id, "actor", claims.Name, "error", err)
		domainError(w, err)
		return
	}

	slog.Info("transfer accepted", "id", id, "actor", claims.Name,
		"item", updated.ItemName, "quantity", updated.Quantity,
		"from", updated.SourceName, "to", updated.DestinationName)
	jsonResponse(w, http.StatusOK, acceptResponse{Transfer: updated, Records: records})
}

type rejectTransferRequest struct {
	Reason string `json:"reason"`
}

// Reject handles POST /api/transfers/{id}/reject.
func (h *TransfersHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}

	var req rejectTransferRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if !h.authorizeProcessing(w, r, id) {
		return
	}

	claims := GetClaims(r.Context())
	updated, err := h.Engine.Reject(r.Context(), id, req.Reason)
	if err != nil {
		domainError(w, err)
		return
	}

	slog.Info("transfer rejected", "id", id, "actor", claims.Name, "reason", req.Reason)
	jsonResponse(w, http.StatusOK, updated)
}

// authorizeProcessing enforces that only the assigned technician or a manager
// processes a request. Writes the error response and returns false when the
// caller may not proceed.
func (h *TransfersHandler) authorizeProcessing(w http.ResponseWriter, r *http.Request, id int64) bool {
	req, err := h.Store.Get(r.Context(), id)
	if err != nil {
		domainError(w, err)
		return false
	}

	claims := GetClaims(r.Context())
	if claims.ActorID != req.AssignedTo && !model.RoleAtLeast(claims.Role, model.RoleManager) {
		jsonError(w, http.StatusForbidden, "transfer is assigned to another technician")
		return false
	}
	return true
}

// queryID parses an optional positive integer query parameter, writing a 400
// and returning ok=false on malformed input. Absent parameters yield 0.
func queryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}
