package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"kaikari/backend/internal/domain"
	"kaikari/backend/internal/receipt"
	"kaikari/backend/internal/report"
	"kaikari/backend/internal/service"
	"kaikari/backend/internal/store"
	"kaikari/backend/internal/store/memory"
)

// newTestAPI builds a full API with a seeded in-memory store, real
// AuthManager and real Service so handler tests exercise the whole path.
func newTestAPI(t *testing.T) *API {
	t.Helper()
	api, _ := newTestAPIWithRepo(t, nil)
	return api
}

func newTestAPIWithRepo(t *testing.T, wrap func(*memory.Store) store.Repository) (*API, *memory.Store) {
	t.Helper()
	t.Setenv("SEED_ADMIN_PASSWORD", "admin123")

	mem := memory.NewSeeded()
	var repo store.Repository = mem
	if wrap != nil {
		repo = wrap(mem)
	}

	logger := zaptest.NewLogger(t)
	projector := report.NewProjector(repo, nil, time.Minute, time.UTC, logger)
	svc := service.New(repo, projector, receipt.NewEscpos(), logger)
	auth := NewAuthManager("test-secret-key-with-32-characters!", time.Hour, repo)

	return New(svc, auth, "*", logger), mem
}

type failingBills struct {
	*memory.Store
}

func (f failingBills) ListBills(context.Context, string) ([]domain.Bill, error) {
	return nil, errors.New("read tcp 10.0.0.5:5432: connection reset by peer")
}

func newFailingAPI(t *testing.T) (*API, *memory.Store) {
	t.Helper()
	return newTestAPIWithRepo(t, func(mem *memory.Store) store.Repository {
		return failingBills{Store: mem}
	})
}

func doJSON(t *testing.T, api *API, method string, path string, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func signupAndLogin(t *testing.T, api *API, username string) string {
	t.Helper()
	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/signup", "", domain.SignupRequest{
		Username: username,
		Password: "secret-pass",
		ShopName: strings.ToUpper(username) + " Vegetables",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup %s: expected 201, got %d (body: %s)", username, rec.Code, rec.Body.String())
	}
	return loginAs(t, api, username, "secret-pass")
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/bills", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec = doJSON(t, api, http.MethodGet, "/api/v1/bills", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rec.Code)
	}
}

func TestSignupRejectsDuplicateUsername(t *testing.T) {
	api := newTestAPI(t)
	signupAndLogin(t, api, "murugan")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/signup", "", domain.SignupRequest{Username: "murugan", Password: "another-pass"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestBillLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := signupAndLogin(t, api, "selvi")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/bills", token, domain.BillCreateRequest{
		CustomerName:    "Kumar",
		BillingType:     "retail",
		Lines:           []domain.LineRequest{{Name: "Tomato", Quantity: 2, UnitPriceCents: 3200, LineTotalCents: 6400}},
		SubtotalCents:   6400,
		GrandTotalCents: 6400,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create bill: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var created domain.Bill
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode bill: %v", err)
	}
	if created.TotalCents != 6400 || len(created.Lines) != 1 || created.ShopName != "SELVI Vegetables" {
		t.Fatalf("unexpected bill %+v", created)
	}

	rec = doJSON(t, api, http.MethodPatch, "/api/v1/bills/"+created.ID, token, map[string]any{
		"lines": []domain.LineRequest{{Name: "Onion", Quantity: 1, UnitPriceCents: 4500, LineTotalCents: 4500}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update bill: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/bills/"+created.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get bill: expected 200, got %d", rec.Code)
	}
	var fetched domain.Bill
	if err := json.NewDecoder(rec.Body).Decode(&fetched); err != nil {
		t.Fatalf("decode bill: %v", err)
	}
	if len(fetched.Lines) != 1 || fetched.Lines[0].Name != "Onion" || fetched.TotalCents != 4500 {
		t.Fatalf("expected replaced lines, got %+v", fetched)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/bills", token, nil)
	var history domain.BillHistoryResponse
	if err := json.NewDecoder(rec.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Bills) != 1 {
		t.Fatalf("expected 1 bill in history, got %d", len(history.Bills))
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/dashboard", token, nil)
	var dash domain.Dashboard
	if err := json.NewDecoder(rec.Body).Decode(&dash); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if dash.TotalBillsToday != 1 || dash.TodayRetailTotalCents != 4500 {
		t.Fatalf("unexpected dashboard %+v", dash)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/bills/"+created.ID+"/receipt", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("receipt: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), created.BillNumber) {
		t.Fatalf("expected receipt filename to carry bill number, got %q", rec.Header().Get("Content-Disposition"))
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("Onion")) {
		t.Fatalf("expected receipt to list Onion")
	}
}

func TestBillOfAnotherUserIsNotFound(t *testing.T) {
	api := newTestAPI(t)
	owner := signupAndLogin(t, api, "owner1")
	other := signupAndLogin(t, api, "other1")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/bills", owner, domain.BillCreateRequest{
		BillingType: "wholesale",
		Lines:       []domain.LineRequest{{Name: "Carrot", Quantity: 1, UnitPriceCents: 5800, LineTotalCents: 5800}},
	})
	var created domain.Bill
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode bill: %v", err)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/bills/"+created.ID, other, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign bill, got %d", rec.Code)
	}
	rec = doJSON(t, api, http.MethodPatch, "/api/v1/bills/"+created.ID, other, map[string]any{"customer_name": "x"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when patching foreign bill, got %d", rec.Code)
	}
}

func TestCreateBillValidationAndConflicts(t *testing.T) {
	api := newTestAPI(t)
	token := signupAndLogin(t, api, "kavya")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/bills", token, domain.BillCreateRequest{
		BillingType: "barter",
		Lines:       []domain.LineRequest{{Name: "Tomato", Quantity: 1}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown billing type, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/bills", token, map[string]any{"lines": []any{}, "unknown": true})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}

	req := domain.BillCreateRequest{
		BillNumber: "BILL-FIXED-0001",
		Lines:      []domain.LineRequest{{Name: "Tomato", Quantity: 1, UnitPriceCents: 3200, LineTotalCents: 3200}},
	}
	if rec := doJSON(t, api, http.MethodPost, "/api/v1/bills", token, req); rec.Code != http.StatusCreated {
		t.Fatalf("expected first bill to succeed, got %d", rec.Code)
	}
	rec = doJSON(t, api, http.MethodPost, "/api/v1/bills", token, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate bill number, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestInventoryEndpoints(t *testing.T) {
	api := newTestAPI(t)
	token := signupAndLogin(t, api, "lakshmi")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/inventory/bulk-sync", token, domain.BulkSyncRequest{
		Items: []domain.BulkSyncItem{
			{Name: "Tomato", LocalizedName: "தக்காளி", Category: "Root Veggies", PriceCents: 3000},
			{Name: "Beetroot", Category: "Root Veggies", PriceCents: 5000},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("bulk sync: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/inventory", token, nil)
	var listed struct {
		Items []domain.InventoryView `json:"items"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("decode inventory: %v", err)
	}
	if len(listed.Items) != 2 {
		t.Fatalf("expected 2 inventory rows, got %d", len(listed.Items))
	}
	for _, item := range listed.Items {
		if item.StockQty != 100 {
			t.Fatalf("expected default stock 100 for %s, got %v", item.Name, item.StockQty)
		}
	}

	rec = doJSON(t, api, http.MethodPut, "/api/v1/inventory/veg_tomato", token, map[string]any{"stock_qty": 12.5})
	if rec.Code != http.StatusOK {
		t.Fatalf("update inventory: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/inventory/daily-pricing", token, domain.DailyPricingRequest{
		StartTime:  "2026-10-15T06:00:00Z",
		ExpiryDate: "2026-10-16",
		Items:      []domain.DailyPriceItem{{ItemID: "veg_tomato", WholesaleCents: 2500, RetailCents: 3100}, {ItemID: "veg_missing", RetailCents: 1}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("daily pricing: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var result domain.SyncResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Processed != 1 || result.Skipped != 1 {
		t.Fatalf("unexpected pricing result %+v", result)
	}

	rec = doJSON(t, api, http.MethodDelete, "/api/v1/inventory/veg_tomato", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete inventory: expected 204, got %d", rec.Code)
	}
	rec = doJSON(t, api, http.MethodDelete, "/api/v1/inventory/veg_tomato", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rec.Code)
	}
}

func TestTopSellingEndpoint(t *testing.T) {
	api := newTestAPI(t)
	token := signupAndLogin(t, api, "devi")

	for _, names := range [][]string{{"Onion", "Tomato"}, {"Onion"}} {
		lines := make([]domain.LineRequest, 0, len(names))
		for _, name := range names {
			lines = append(lines, domain.LineRequest{Name: name, Quantity: 1, UnitPriceCents: 100, LineTotalCents: 100})
		}
		if rec := doJSON(t, api, http.MethodPost, "/api/v1/bills", token, domain.BillCreateRequest{Lines: lines}); rec.Code != http.StatusCreated {
			t.Fatalf("create bill: expected 201, got %d", rec.Code)
		}
	}

	rec := doJSON(t, api, http.MethodGet, "/api/v1/inventory/top-selling?limit=1", token, nil)
	var payload struct {
		Items []domain.TopItem `json:"items"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode top selling: %v", err)
	}
	if len(payload.Items) != 1 || payload.Items[0].Name != "Onion" || payload.Items[0].SaleCount != 2 {
		t.Fatalf("unexpected top selling %+v", payload.Items)
	}
}

func TestVegetableAdministrationRequiresAdmin(t *testing.T) {
	api := newTestAPI(t)
	shopToken := signupAndLogin(t, api, "ravi01")
	adminToken := loginAsAdmin(t, api)

	create := domain.VegetableCreateRequest{Name: "Drumstick", LocalizedName: "முருங்கைக்காய்", Category: "Others", PriceCents: 6000}
	rec := doJSON(t, api, http.MethodPost, "/api/v1/vegetables", shopToken, create)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for shop user, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/vegetables", adminToken, create)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for admin, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, api, http.MethodPost, "/api/v1/vegetables", adminToken, create)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate vegetable, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodPut, "/api/v1/vegetables/bulk-price-update", adminToken, []domain.MasterPriceUpdate{
		{ItemID: "veg_tomato", WholesaleCents: 2400, RetailCents: 3000},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("bulk price update: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, api, http.MethodPut, "/api/v1/vegetables/bulk-price-update", shopToken, []domain.MasterPriceUpdate{
		{ItemID: "veg_tomato", WholesaleCents: 1, RetailCents: 1},
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for shop user price update, got %d", rec.Code)
	}
}
