package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tmarolt/fleetstock/internal/auth"
	"github.com/tmarolt/fleetstock/internal/db"
	"github.com/tmarolt/fleetstock/internal/model"
	"github.com/tmarolt/fleetstock/internal/store"
)

const testSecret = "test-secret"

type testServer struct {
	db      *sql.DB
	server  *httptest.Server
	manager string
	tech    string
}

// newTestServer spins up the full router over a fresh in-memory database,
// with tokens minted the way the platform's auth service would.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	database := db.NewTestDB(t)

	server := httptest.NewServer(NewRouter(database, testSecret))
	t.Cleanup(server.Close)

	manager, err := auth.GenerateToken(testSecret, 1, "Ana", model.RoleManager)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	tech, err := auth.GenerateToken(testSecret, 2, "Peter", model.RoleTechnician)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	return &testServer{db: database, server: server, manager: manager, tech: tech}
}

func (ts *testServer) request(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, ts.server.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response: %v", err)
	}
	return resp, data
}

func (ts *testServer) seedCatalog(t *testing.T) (*model.Item, *model.Location, *model.Location) {
	t.Helper()
	ctx := context.Background()

	item, err := store.CreateItem(ctx, ts.db, "Brake pads", "pc", decimal.NewFromInt(10), 2, nil)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	wh, err := store.CreateLocation(ctx, ts.db, "Main warehouse", model.LocationKindWarehouse)
	if err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}
	van, err := store.CreateLocation(ctx, ts.db, "Van 1", model.LocationKindVehicle)
	if err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}
	return item, wh, van
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.request(t, http.MethodGet, "/api/items", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, _ = ts.request(t, http.MethodGet, "/api/items", "not-a-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 with a bad token, got %d", resp.StatusCode)
	}
}

func TestRoleEnforcement(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]any{"name": "Brake pads", "unit_price": "10", "reorder_point": 2}

	// Technicians can read the catalog but not write it.
	resp, _ := ts.request(t, http.MethodPost, "/api/items", ts.tech, body)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for technician item create, got %d", resp.StatusCode)
	}

	resp, _ = ts.request(t, http.MethodGet, "/api/items", ts.tech, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for technician item list, got %d", resp.StatusCode)
	}

	resp, _ = ts.request(t, http.MethodPost, "/api/items", ts.manager, body)
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("expected 201 for manager item create, got %d", resp.StatusCode)
	}
}

func TestTransferFlow(t *testing.T) {
	ts := newTestServer(t)
	item, wh, van := ts.seedCatalog(t)

	// Manager stocks the warehouse.
	resp, _ := ts.request(t, http.MethodPost, "/api/stock", ts.manager,
		map[string]any{"item_id": item.ID, "location_id": wh.ID, "quantity": 50})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 stocking, got %d", resp.StatusCode)
	}

	// Manager requests a transfer to the technician's van.
	resp, data := ts.request(t, http.MethodPost, "/api/transfers", ts.manager,
		map[string]any{"item_id": item.ID, "quantity": 10, "source_location_id": wh.ID,
			"destination_location_id": van.ID, "assigned_to": 2})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating transfer, got %d: %s", resp.StatusCode, data)
	}
	var created model.TransferRequest
	json.Unmarshal(data, &created)

	// The technician sees it in their inbox.
	resp, data = ts.request(t, http.MethodGet, "/api/transfers/pending", ts.tech, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 listing pending, got %d", resp.StatusCode)
	}
	var pending []model.TransferRequest
	json.Unmarshal(data, &pending)
	if len(pending) != 1 || pending[0].ID != created.ID {
		t.Fatalf("expected the created transfer in the inbox, got %+v", pending)
	}

	// The technician accepts it.
	resp, data = ts.request(t, http.MethodPost, fmt.Sprintf("/api/transfers/%d/accept", created.ID), ts.tech, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 accepting, got %d: %s", resp.StatusCode, data)
	}
	var accepted struct {
		Transfer model.TransferRequest       `json:"transfer"`
		Records  []model.StockLocationRecord `json:"records"`
	}
	json.Unmarshal(data, &accepted)
	if accepted.Transfer.Status != model.TransferAccepted {
		t.Errorf("expected status accepted, got %s", accepted.Transfer.Status)
	}
	if len(accepted.Records) != 2 || accepted.Records[0].Quantity != 40 || accepted.Records[1].Quantity != 10 {
		t.Errorf("unexpected stock records: %+v", accepted.Records)
	}

	// The ledger agrees.
	resp, data = ts.request(t, http.MethodGet,
		fmt.Sprintf("/api/stock/level?item_id=%d&location_id=%d", item.ID, van.ID), ts.tech, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 reading level, got %d", resp.StatusCode)
	}
	var level struct {
		Quantity int  `json:"quantity"`
		Tracked  bool `json:"tracked"`
	}
	json.Unmarshal(data, &level)
	if !level.Tracked || level.Quantity != 10 {
		t.Errorf("expected tracked quantity 10 at the van, got %+v", level)
	}
}

func TestAcceptRequiresAssigneeOrManager(t *testing.T) {
	ts := newTestServer(t)
	item, wh, van := ts.seedCatalog(t)

	ts.request(t, http.MethodPost, "/api/stock", ts.manager,
		map[string]any{"item_id": item.ID, "location_id": wh.ID, "quantity": 50})

	// Assigned to actor 7, not our technician (actor 2).
	_, data := ts.request(t, http.MethodPost, "/api/transfers", ts.manager,
		map[string]any{"item_id": item.ID, "quantity": 10, "source_location_id": wh.ID,
			"destination_location_id": van.ID, "assigned_to": 7})
	var created model.TransferRequest
	json.Unmarshal(data, &created)

	resp, _ := ts.request(t, http.MethodPost, fmt.Sprintf("/api/transfers/%d/accept", created.ID), ts.tech, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for non-assignee technician, got %d", resp.StatusCode)
	}

	// A manager can process anyone's request.
	resp, _ = ts.request(t, http.MethodPost, fmt.Sprintf("/api/transfers/%d/accept", created.ID), ts.manager, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for manager accept, got %d", resp.StatusCode)
	}
}

func TestAcceptInsufficientStockConflict(t *testing.T) {
	ts := newTestServer(t)
	item, wh, van := ts.seedCatalog(t)

	ts.request(t, http.MethodPost, "/api/stock", ts.manager,
		map[string]any{"item_id": item.ID, "location_id": wh.ID, "quantity": 5})

	_, data := ts.request(t, http.MethodPost, "/api/transfers", ts.manager,
		map[string]any{"item_id": item.ID, "quantity": 10, "source_location_id": wh.ID,
			"destination_location_id": van.ID, "assigned_to": 2})
	var created model.TransferRequest
	json.Unmarshal(data, &created)

	resp, data := ts.request(t, http.MethodPost, fmt.Sprintf("/api/transfers/%d/accept", created.ID), ts.tech, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for insufficient stock, got %d: %s", resp.StatusCode, data)
	}

	var body struct {
		Available int `json:"available"`
		Requested int `json:"requested"`
	}
	json.Unmarshal(data, &body)
	if body.Available != 5 || body.Requested != 10 {
		t.Errorf("expected available 5, requested 10, got %+v", body)
	}

	// The request was auto-rejected.
	_, data = ts.request(t, http.MethodGet, fmt.Sprintf("/api/transfers/%d", created.ID), ts.tech, nil)
	var got model.TransferRequest
	json.Unmarshal(data, &got)
	if got.Status != model.TransferRejected {
		t.Errorf("expected status rejected, got %s", got.Status)
	}
}

func TestRejectWithReason(t *testing.T) {
	ts := newTestServer(t)
	item, wh, van := ts.seedCatalog(t)

	_, data := ts.request(t, http.MethodPost, "/api/transfers", ts.manager,
		map[string]any{"item_id": item.ID, "quantity": 10, "source_location_id": wh.ID,
			"destination_location_id": van.ID, "assigned_to": 2})
	var created model.TransferRequest
	json.Unmarshal(data, &created)

	resp, data := ts.request(t, http.MethodPost, fmt.Sprintf("/api/transfers/%d/reject", created.ID), ts.tech,
		map[string]any{"reason": "van is full"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 rejecting, got %d: %s", resp.StatusCode, data)
	}

	var got model.TransferRequest
	json.Unmarshal(data, &got)
	if got.Status != model.TransferRejected || got.RejectionReason != "van is full" {
		t.Errorf("unexpected request after reject: %+v", got)
	}

	// Rejecting again conflicts.
	resp, _ = ts.request(t, http.MethodPost, fmt.Sprintf("/api/transfers/%d/reject", created.ID), ts.tech, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 on double reject, got %d", resp.StatusCode)
	}
}

func TestTransferNotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.request(t, http.MethodGet, "/api/transfers/9999", ts.tech, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestReplenishmentReport(t *testing.T) {
	ts := newTestServer(t)
	item, wh, _ := ts.seedCatalog(t)

	// Stocked at 1 against the item's reorder point of 2: below minimum.
	ts.request(t, http.MethodPost, "/api/stock", ts.manager,
		map[string]any{"item_id": item.ID, "location_id": wh.ID, "quantity": 1})

	resp, data := ts.request(t, http.MethodGet, "/api/replenishment", ts.tech, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var signals []struct {
		Record            model.StockLocationRecord `json:"record"`
		SuggestedQuantity int                       `json:"suggested_quantity"`
	}
	json.Unmarshal(data, &signals)
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}
	if signals[0].Record.ItemID != item.ID || signals[0].SuggestedQuantity != 3 {
		t.Errorf("unexpected signal: %+v", signals[0])
	}
}
