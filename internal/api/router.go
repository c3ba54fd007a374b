package api

import (
	"database/sql"
	"net/http"

	"github.com/tmarolt/fleetstock/internal/ledger"
	"github.com/tmarolt/fleetstock/internal/model"
	"github.com/tmarolt/fleetstock/internal/replenish"
	"github.com/tmarolt/fleetstock/internal/transfer"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, tokenSecret string) http.Handler {
	stock := ledger.New(db)
	requests := transfer.NewStore(db)
	engine := transfer.NewEngine(stock, requests)
	advisor := replenish.NewAdvisor(db, stock)

	itemsHandler := &ItemsHandler{DB: db}
	locationsHandler := &LocationsHandler{DB: db}
	stockHandler := &StockHandler{DB: db, Ledger: stock}
	transfersHandler := &TransfersHandler{Store: requests, Engine: engine}
	replenishHandler := &ReplenishHandler{Advisor: advisor}
	usageHandler := &UsageHandler{DB: db}

	authMW := AuthMiddleware(tokenSecret)
	requireManager := RequireRole(model.RoleManager)

	mux := http.NewServeMux()

	// Catalog: read (all roles), write (manager).
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(requireManager(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(requireManager(http.HandlerFunc(itemsHandler.Update))))
	mux.Handle("DELETE /api/items/{id}", authMW(requireManager(http.HandlerFunc(itemsHandler.Delete))))

	// Locations: read (all roles), write (manager).
	mux.Handle("GET /api/locations", authMW(http.HandlerFunc(locationsHandler.List)))
	mux.Handle("POST /api/locations", authMW(requireManager(http.HandlerFunc(locationsHandler.Create))))
	mux.Handle("GET /api/locations/{id}", authMW(http.HandlerFunc(locationsHandler.Get)))
	mux.Handle("PUT /api/locations/{id}", authMW(requireManager(http.HandlerFunc(locationsHandler.Update))))
	mux.Handle("DELETE /api/locations/{id}", authMW(requireManager(http.HandlerFunc(locationsHandler.Delete))))

	// Stock ledger: read (all roles), mutation (manager). Transfers are how
	// technicians move stock; direct ledger writes are a manager action.
	mux.Handle("GET /api/stock", authMW(http.HandlerFunc(stockHandler.List)))
	mux.Handle("GET /api/stock/level", authMW(http.HandlerFunc(stockHandler.Level)))
	mux.Handle("GET /api/stock/valuation", authMW(http.HandlerFunc(stockHandler.Valuation)))
	mux.Handle("POST /api/stock", authMW(requireManager(http.HandlerFunc(stockHandler.Stock))))
	mux.Handle("POST /api/stock/adjust", authMW(requireManager(http.HandlerFunc(stockHandler.Adjust))))
	mux.Handle("PUT /api/stock/thresholds", authMW(requireManager(http.HandlerFunc(stockHandler.SetThresholds))))
	mux.Handle("DELETE /api/stock", authMW(requireManager(http.HandlerFunc(stockHandler.Remove))))

	// Transfer workflow: creation (manager), processing (assignee or manager,
	// enforced in the handler).
	mux.Handle("POST /api/transfers", authMW(requireManager(http.HandlerFunc(transfersHandler.Create))))
	mux.Handle("GET /api/transfers", authMW(http.HandlerFunc(transfersHandler.List)))
	mux.Handle("GET /api/transfers/pending", authMW(http.HandlerFunc(transfersHandler.ListPending)))
	mux.Handle("GET /api/transfers/{id}", authMW(http.HandlerFunc(transfersHandler.Get)))
	mux.Handle("POST /api/transfers/{id}/accept", authMW(http.HandlerFunc(transfersHandler.Accept)))
	mux.Handle("POST /api/transfers/{id}/reject", authMW(http.HandlerFunc(transfersHandler.Reject)))

	// Replenishment advisor (all roles, read-only).
	mux.Handle("GET /api/replenishment", authMW(http.HandlerFunc(replenishHandler.Report)))
	mux.Handle("GET /api/replenishment/check", authMW(http.HandlerFunc(replenishHandler.Check)))
	mux.Handle("GET /api/replenishment/depletion", authMW(http.HandlerFunc(replenishHandler.Depletion)))

	// Usage history (all roles).
	mux.Handle("POST /api/usage", authMW(http.HandlerFunc(usageHandler.Create)))
	mux.Handle("GET /api/usage", authMW(http.HandlerFunc(usageHandler.List)))

	return mux
}
