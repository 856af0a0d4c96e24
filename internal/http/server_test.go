package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"finledger/internal/core"
	"finledger/internal/storage/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()
	srv := NewServer(":0", memory.NewStore(), Options{RequestsPerMinute: 10000})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts, srv
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func registerUser(t *testing.T, ts *httptest.Server, username string) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/register", "", map[string]string{
		"username": username,
		"password": "hunter2hunter2",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}
	auth := decodeBody[authResponse](t, resp)
	if auth.Token == "" {
		t.Fatal("register returned empty token")
	}
	return auth.Token
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}
}

func TestAuthFlow(t *testing.T) {
	ts, _ := newTestServer(t)

	// Protected route without a token.
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/transactions", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()

	registerUser(t, ts, "alice")

	// Duplicate username.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/register", "", map[string]string{
		"username": "alice",
		"password": "hunter2hunter2",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()

	// Login with the right and wrong password.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/login", "", map[string]string{
		"username": "alice",
		"password": "hunter2hunter2",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	auth := decodeBody[authResponse](t, resp)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/login", "", map[string]string{
		"username": "alice",
		"password": "wrong-password",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()

	// Logout kills the session.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/logout", auth.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/transactions", auth.Token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("post-logout status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTransactionCRUD(t *testing.T) {
	ts, _ := newTestServer(t)
	token := registerUser(t, ts, "bob")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/transactions", token, map[string]any{
		"date":        "2024-03-05",
		"kind":        "expense",
		"amount":      "12,50",
		"description": "lunch",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	created := decodeBody[core.Transaction](t, resp)
	if created.Amount != 12.5 {
		t.Errorf("Amount = %v, want 12.5 (comma decimal accepted)", created.Amount)
	}
	if created.Category != core.FallbackCategory {
		t.Errorf("Category = %q, want fallback %q", created.Category, core.FallbackCategory)
	}

	url := fmt.Sprintf("%s/api/transactions/%d", ts.URL, created.ID)

	resp = doJSON(t, http.MethodGet, url, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodPut, url, token, map[string]any{
		"date":     "2024-03-05",
		"kind":     "expense",
		"amount":   20,
		"category": "Food",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, want 200", resp.StatusCode)
	}
	updated := decodeBody[core.Transaction](t, resp)
	if updated.Amount != 20 || updated.Category != "Food" {
		t.Errorf("updated = %+v, want amount 20 category Food", updated)
	}

	resp = doJSON(t, http.MethodDelete, url, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, url, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTransactionValidationRejected(t *testing.T) {
	ts, _ := newTestServer(t)
	token := registerUser(t, ts, "carol")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"negative amount", map[string]any{"date": "2024-03-05", "kind": "expense", "amount": -3, "category": "Food"}},
		{"bad kind", map[string]any{"date": "2024-03-05", "kind": "transfer", "amount": 5, "category": "Food"}},
		{"missing date", map[string]any{"kind": "expense", "amount": 5, "category": "Food"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, ts.URL+"/api/transactions", token, tt.body)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestUserIsolation(t *testing.T) {
	ts, _ := newTestServer(t)
	tokenA := registerUser(t, ts, "user-a")
	tokenB := registerUser(t, ts, "user-b")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/transactions", tokenA, map[string]any{
		"date": "2024-03-05", "kind": "expense", "amount": 10, "category": "Food",
	})
	created := decodeBody[core.Transaction](t, resp)

	url := fmt.Sprintf("%s/api/transactions/%d", ts.URL, created.ID)
	resp = doJSON(t, http.MethodGet, url, tokenB, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-user get status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, url, tokenB, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-user delete status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestReportCaching(t *testing.T) {
	ts, _ := newTestServer(t)
	token := registerUser(t, ts, "dave")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/transactions", token, map[string]any{
		"date": "2024-03-05", "kind": "income", "amount": 100, "category": "Income",
	})
	resp.Body.Close()

	url := ts.URL + "/api/reports/net"

	resp = doJSON(t, http.MethodGet, url, token, nil)
	if resp.Header.Get("X-Cache") == "hit" {
		t.Error("first read should not be a cache hit")
	}
	first := decodeBody[map[string]float64](t, resp)
	if first["net"] != 100 {
		t.Errorf("net = %v, want 100", first["net"])
	}

	resp = doJSON(t, http.MethodGet, url, token, nil)
	if resp.Header.Get("X-Cache") != "hit" {
		t.Error("second read should be served from cache")
	}
	resp.Body.Close()

	// A write invalidates the cached report.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/transactions", token, map[string]any{
		"date": "2024-03-06", "kind": "expense", "amount": 40, "category": "Food",
	})
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, url, token, nil)
	if resp.Header.Get("X-Cache") == "hit" {
		t.Error("read after write should not be a cache hit")
	}
	second := decodeBody[map[string]float64](t, resp)
	if second["net"] != 60 {
		t.Errorf("net after write = %v, want 60", second["net"])
	}
}

func TestMaterializeEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	token := registerUser(t, ts, "erin")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/recurring", token, map[string]any{
		"name":      "Rent",
		"kind":      "expense",
		"amount":    800,
		"category":  "Housing",
		"frequency": "monthly",
		"next_run":  "2024-01-01",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create rule status = %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/recurring/materialize?as_of=2024-03-15", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("materialize status = %d, want 200", resp.StatusCode)
	}
	result := decodeBody[map[string]any](t, resp)
	if result["created"].(float64) != 3 {
		t.Errorf("created = %v, want 3", result["created"])
	}

	// Second call is a no-op.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/recurring/materialize?as_of=2024-03-15", token, nil)
	again := decodeBody[map[string]any](t, resp)
	if again["created"].(float64) != 0 {
		t.Errorf("repeat created = %v, want 0", again["created"])
	}
}

func TestDashboardReport(t *testing.T) {
	ts, _ := newTestServer(t)
	token := registerUser(t, ts, "gwen")

	for _, tx := range []map[string]any{
		{"date": "2024-02-10", "kind": "income", "amount": 1000, "category": "Income"},
		{"date": "2024-03-05", "kind": "expense", "amount": 200, "category": "Food"},
	} {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/transactions", token, tx)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create transaction status = %d, want 201", resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/reports/dashboard", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status = %d, want 200", resp.StatusCode)
	}
	dash := decodeBody[dashboardResponse](t, resp)

	if dash.Income != 1000 {
		t.Errorf("income = %v, want 1000", dash.Income)
	}
	if dash.Expenses != 200 {
		t.Errorf("expenses = %v, want 200", dash.Expenses)
	}
	if dash.Net != 800 {
		t.Errorf("net = %v, want 800", dash.Net)
	}
	if len(dash.Monthly) != 2 {
		t.Fatalf("got %d monthly entries, want 2", len(dash.Monthly))
	}
	if dash.Monthly[0].Month != "2024-02" || dash.Monthly[1].Month != "2024-03" {
		t.Errorf("monthly keys = %s, %s; want 2024-02, 2024-03", dash.Monthly[0].Month, dash.Monthly[1].Month)
	}
	if len(dash.BalancePoints) != 2 {
		t.Fatalf("got %d balance points, want 2", len(dash.BalancePoints))
	}
	if dash.BalancePoints[1].Balance != 800 {
		t.Errorf("final balance = %v, want 800", dash.BalancePoints[1].Balance)
	}
	if len(dash.Recent) != 2 {
		t.Errorf("got %d recent transactions, want 2", len(dash.Recent))
	}
}

func TestRecurringNextRunMonotonic(t *testing.T) {
	ts, _ := newTestServer(t)
	token := registerUser(t, ts, "hugo")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/recurring", token, map[string]any{
		"name":      "Gym",
		"kind":      "expense",
		"amount":    50,
		"category":  "Health",
		"frequency": "monthly",
		"next_run":  "2024-05-01",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create rule status = %d, want 201", resp.StatusCode)
	}
	rule := decodeBody[core.RecurringRule](t, resp)

	url := fmt.Sprintf("%s/api/recurring/%d", ts.URL, rule.ID)
	update := func(nextRun string) *http.Response {
		return doJSON(t, http.MethodPut, url, token, map[string]any{
			"name":      "Gym",
			"kind":      "expense",
			"amount":    55,
			"category":  "Health",
			"frequency": "monthly",
			"next_run":  nextRun,
		})
	}

	resp = update("2024-04-01")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("rewound next_run status = %d, want 400", resp.StatusCode)
	}

	resp = update("2024-05-01")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("unchanged next_run status = %d, want 200", resp.StatusCode)
	}

	resp = update("2024-06-01")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("advanced next_run status = %d, want 200", resp.StatusCode)
	}
}

func TestBudgetEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)
	token := registerUser(t, ts, "frank")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/budgets", token, map[string]any{
		"period_start": "2024-03-01",
		"period_end":   "2024-03-31",
		"category":     "Food",
		"amount":       400,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create budget status = %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/transactions", token, map[string]any{
		"date": "2024-03-10", "kind": "expense", "amount": 350, "category": "Food",
	})
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/reports/budgets?as_of=2024-03-15", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("budget report status = %d, want 200", resp.StatusCode)
	}
	progress := decodeBody[[]core.BudgetProgress](t, resp)
	if len(progress) != 1 {
		t.Fatalf("got %d budgets, want 1", len(progress))
	}
	if progress[0].Percent != 87.5 {
		t.Errorf("Percent = %v, want 87.5", progress[0].Percent)
	}
}

func TestSavingsGoalEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)
	token := registerUser(t, ts, "grace")

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/savings-goal", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("goal before set status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodPut, ts.URL+"/api/savings-goal", token, map[string]any{
		"name":          "Vacation",
		"target_amount": 1000,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set goal status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/savings-goal/contribute", token, map[string]any{
		"amount": 250,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("contribute status = %d, want 200", resp.StatusCode)
	}
	goal := decodeBody[savingsGoalResponse](t, resp)
	if goal.CurrentAmount != 250 || goal.Percent != 25 {
		t.Errorf("goal = current %v percent %v, want 250 and 25", goal.CurrentAmount, goal.Percent)
	}
}

func TestAccountManagement(t *testing.T) {
	ts, _ := newTestServer(t)
	token := registerUser(t, ts, "iris")

	resp := doJSON(t, http.MethodPut, ts.URL+"/api/account/password", token, map[string]string{
		"current_password": "wrong-password",
		"new_password":     "brand-new-secret",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong current password status = %d, want 401", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPut, ts.URL+"/api/account/password", token, map[string]string{
		"current_password": "hunter2hunter2",
		"new_password":     "brand-new-secret",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("change password status = %d, want 200", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/login", "", map[string]string{
		"username": "iris", "password": "hunter2hunter2",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("login with old password status = %d, want 401", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/login", "", map[string]string{
		"username": "iris", "password": "brand-new-secret",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("login with new password status = %d, want 200", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/account", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete account status = %d, want 200", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/transactions", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("session after deletion status = %d, want 401", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/login", "", map[string]string{
		"username": "iris", "password": "brand-new-secret",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("login after deletion status = %d, want 401", resp.StatusCode)
	}
}

func TestExportNotConfigured(t *testing.T) {
	ts, _ := newTestServer(t)
	token := registerUser(t, ts, "henry")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/reports/export", token, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("export status = %d, want 501", resp.StatusCode)
	}
}
