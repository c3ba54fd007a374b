package api

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/tmarolt/fleetstock/internal/model"
	"github.com/tmarolt/fleetstock/internal/store"
)

// UsageHandler handles usage history endpoints. Usage is written by the
// application's consumption tracking and read by the replenishment advisor.
type UsageHandler struct {
	DB *sql.DB
}

type usageRequest struct {
	ItemID     int64      `json:"item_id"`
	LocationID *int64     `json:"location_id"`
	Quantity   int        `json:"quantity"`
	UsedAt     *time.Time `json:"used_at"`
}

// Create handles POST /api/usage.
func (h *UsageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req usageRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemID <= 0 || req.Quantity <= 0 {
		jsonError(w, http.StatusBadRequest, "item_id and a positive quantity are required")
		return
	}

	usedAt := time.Time{}
	if req.UsedAt != nil {
		usedAt = *req.UsedAt
	}

	rec, err := store.RecordUsage(r.Context(), h.DB, req.ItemID, req.LocationID, req.Quantity, usedAt)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to record usage")
		return
	}
	jsonResponse(w, http.StatusCreated, rec)
}

// List handles GET /api/usage. Requires item_id; days limits the window
// (default 30).
func (h *UsageHandler) List(w http.ResponseWriter, r *http.Request) {
	itemID, ok := queryID(w, r, "item_id")
	if !ok {
		return
	}
	if itemID == 0 {
		jsonError(w, http.StatusBadRequest, "item_id is required")
		return
	}

	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, http.StatusBadRequest, "invalid days")
			return
		}
		days = n
	}

	records, err := store.ListUsageSince(r.Context(), h.DB, itemID, time.Now().AddDate(0, 0, -days))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list usage")
		return
	}
	if records == nil {
		records = []model.UsageRecord{}
	}
	jsonResponse(w, http.StatusOK, records)
}
