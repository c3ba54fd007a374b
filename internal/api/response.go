package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tmarolt/fleetstock/internal/ledger"
	"github.com/tmarolt/fleetstock/internal/transfer"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// domainError maps ledger and transfer errors to an HTTP status and writes
// the response. Insufficient-stock errors carry the available quantity so the
// client can offer the user a smaller request.
func domainError(w http.ResponseWriter, err error) {
	var insufficient *ledger.InsufficientStockError
	if errors.As(err, &insufficient) {
		jsonResponse(w, http.StatusConflict, map[string]any{
			"error":     err.Error(),
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		})
		return
	}

	switch {
	case errors.Is(err, transfer.ErrNotFound), errors.Is(err, ledger.ErrRecordNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, transfer.ErrInvalidArgument), errors.Is(err, ledger.ErrInvalidArgument):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, transfer.ErrInvalidTransition), errors.Is(err, transfer.ErrConflict):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, transfer.ErrDestinationUpdate):
		jsonError(w, http.StatusInternalServerError, err.Error())
	default:
		jsonError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
