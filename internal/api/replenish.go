package api

import (
	"errors"
	"net/http"

	"github.com/tmarolt/fleetstock/internal/ledger"
	"github.com/tmarolt/fleetstock/internal/replenish"
)

// ReplenishHandler handles replenishment advisory endpoints. All read-only.
type ReplenishHandler struct {
	Advisor *replenish.Advisor
}

// Report handles GET /api/replenishment — every record at or below its
// minimum stock level, with suggested order quantities.
func (h *ReplenishHandler) Report(w http.ResponseWriter, r *http.Request) {
	locationID, ok := queryID(w, r, "location_id")
	if !ok {
		return
	}

	signals, err := h.Advisor.Report(r.Context(), locationID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to build replenishment report")
		return
	}
	jsonResponse(w, http.StatusOK, signals)
}

// Check handles GET /api/replenishment/check for one (item, location) pair.
func (h *ReplenishHandler) Check(w http.ResponseWriter, r *http.Request) {
	itemID, locationID, ok := requirePair(w, r)
	if !ok {
		return
	}

	needs, err := h.Advisor.NeedsReplenishment(r.Context(), itemID, locationID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to check replenishment")
		return
	}

	resp := map[string]any{
		"item_id":             itemID,
		"location_id":         locationID,
		"needs_replenishment": needs,
	}

	suggested, err := h.Advisor.SuggestedQuantity(r.Context(), itemID, locationID)
	switch {
	case err == nil:
		resp["suggested_quantity"] = suggested
	case errors.Is(err, ledger.ErrRecordNotFound):
		// Untracked pair: needs is false and there is nothing to suggest.
	default:
		jsonError(w, http.StatusInternalServerError, "failed to suggest quantity")
		return
	}

	jsonResponse(w, http.StatusOK, resp)
}

// Depletion handles GET /api/replenishment/depletion — estimated days until
// the pair's stock runs out at the trailing 30-day consumption rate.
func (h *ReplenishHandler) Depletion(w http.ResponseWriter, r *http.Request) {
	itemID, locationID, ok := requirePair(w, r)
	if !ok {
		return
	}

	days, err := h.Advisor.EstimateDepletion(r.Context(), itemID, locationID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to estimate depletion")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"item_id":     itemID,
		"location_id": locationID,
		"days":        days,
		"exhausts":    days < replenish.EffectivelyInfinite,
	})
}
