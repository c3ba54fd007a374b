package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/tmarolt/fleetstock/internal/ledger"
	"github.com/tmarolt/fleetstock/internal/model"
	"github.com/tmarolt/fleetstock/internal/store"
)

// StockHandler handles stock ledger endpoints.
type StockHandler struct {
	DB     *sql.DB
	Ledger *ledger.Ledger
}

// List handles GET /api/stock.
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	itemID, ok := queryID(w, r, "item_id")
	if !ok {
		return
	}
	locationID, ok := queryID(w, r, "location_id")
	if !ok {
		return
	}

	records, err := h.Ledger.List(r.Context(), itemID, locationID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list stock records")
		return
	}
	if records == nil {
		records = []model.StockLocationRecord{}
	}
	jsonResponse(w, http.StatusOK, records)
}

// Level handles GET /api/stock/level. Returns the quantity (0 for untracked
// pairs) and, when a record exists, the record itself.
func (h *StockHandler) Level(w http.ResponseWriter, r *http.Request) {
	itemID, locationID, ok := requirePair(w, r)
	if !ok {
		return
	}

	rec, err := h.Ledger.GetRecord(r.Context(), itemID, locationID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to read stock record")
		return
	}

	resp := map[string]any{"item_id": itemID, "location_id": locationID, "quantity": 0, "tracked": false}
	if rec != nil {
		resp["quantity"] = rec.Quantity
		resp["tracked"] = true
		resp["record"] = rec
	}
	jsonResponse(w, http.StatusOK, resp)
}

type stockRequest struct {
	ItemID     int64 `json:"item_id"`
	LocationID int64 `json:"location_id"`
	Quantity   int   `json:"quantity"`
}

// Stock handles POST /api/stock — an explicit stocking action. A record
// created by stocking takes its minimum stock level from the item's reorder
// point.
func (h *StockHandler) Stock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemID <= 0 || req.LocationID <= 0 {
		jsonError(w, http.StatusBadRequest, "item_id and location_id are required")
		return
	}

	it, err := store.GetItem(r.Context(), h.DB, req.ItemID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to read item")
		return
	}
	if it == nil || it.DeletedAt != nil {
		jsonError(w, http.StatusBadRequest, "unknown item")
		return
	}

	rec, err := h.Ledger.Stock(r.Context(), req.ItemID, req.LocationID, req.Quantity, it.ReorderPoint)
	if err != nil {
		domainError(w, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("stock added", "actor", claims.Name, "item", rec.ItemName,
		"location", rec.LocationName, "quantity", req.Quantity)
	jsonResponse(w, http.StatusCreated, rec)
}

type adjustRequest struct {
	ItemID     int64 `json:"item_id"`
	LocationID int64 `json:"location_id"`
	Delta      int   `json:"delta"`
}

// Adjust handles POST /api/stock/adjust (corrections and losses).
func (h *StockHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemID <= 0 || req.LocationID <= 0 {
		jsonError(w, http.StatusBadRequest, "item_id and location_id are required")
		return
	}

	rec, err := h.Ledger.Adjust(r.Context(), req.ItemID, req.LocationID, req.Delta)
	if err != nil {
		domainError(w, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("stock adjusted", "actor", claims.Name, "item", rec.ItemName,
		"location", rec.LocationName, "delta", req.Delta, "quantity", rec.Quantity)
	jsonResponse(w, http.StatusOK, rec)
}

type thresholdsRequest struct {
	ItemID     int64 `json:"item_id"`
	LocationID int64 `json:"location_id"`
	Minimum    int   `json:"minimum_stock_level"`
	Maximum    *int  `json:"maximum_stock_level"`
}

// SetThresholds handles PUT /api/stock/thresholds.
func (h *StockHandler) SetThresholds(w http.ResponseWriter, r *http.Request) {
	var req thresholdsRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemID <= 0 || req.LocationID <= 0 {
		jsonError(w, http.StatusBadRequest, "item_id and location_id are required")
		return
	}

	if err := h.Ledger.SetThresholds(r.Context(), req.ItemID, req.LocationID, req.Minimum, req.Maximum); err != nil {
		domainError(w, err)
		return
	}

	rec, err := h.Ledger.GetRecord(r.Context(), req.ItemID, req.LocationID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to read stock record")
		return
	}
	jsonResponse(w, http.StatusOK, rec)
}

// Remove handles DELETE /api/stock — explicit removal of a stock record.
func (h *StockHandler) Remove(w http.ResponseWriter, r *http.Request) {
	itemID, locationID, ok := requirePair(w, r)
	if !ok {
		return
	}

	if err := h.Ledger.Remove(r.Context(), itemID, locationID); err != nil {
		domainError(w, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("stock record removed", "actor", claims.Name, "item_id", itemID, "location_id", locationID)
	jsonResponse(w, http.StatusNoContent, nil)
}

// Valuation handles GET /api/stock/valuation.
func (h *StockHandler) Valuation(w http.ResponseWriter, r *http.Request) {
	locationID, ok := queryID(w, r, "location_id")
	if !ok {
		return
	}

	total, err := h.Ledger.Valuation(r.Context(), locationID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to value stock")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"location_id": locationID, "value": total})
}

// requirePair parses the mandatory item_id and location_id query parameters.
func requirePair(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	itemID, ok := queryID(w, r, "item_id")
	if !ok {
		return 0, 0, false
	}
	locationID, ok := queryID(w, r, "location_id")
	if !ok {
		return 0, 0, false
	}
	if itemID == 0 || locationID == 0 {
		jsonError(w, http.StatusBadRequest, "item_id and location_id are required")
		return 0, 0, false
	}
	return itemID, locationID, true
}
