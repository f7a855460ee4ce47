package http

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

var fixedNow = time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	svc := services.NewBudgetService(storage.NewRepository(memory.New()),
		services.WithClock(clock),
		services.WithLogger(applog.Discard()))
	opts.Now = clock
	s := NewServer(":0", svc, applog.Discard(), opts)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %T: %v", v, err)
	}
	return v
}

func mustStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func TestServer_BudgetFlow(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := do(t, s, http.MethodPost, "/api/categories", "alice", `{"name":"Groceries","color":"emerald","type":"expense"}`)
	mustStatus(t, rec, http.StatusCreated)
	cat := decode[core.Category](t, rec)
	if cat.ID == "" || !cat.IsActive {
		t.Fatalf("unexpected category %+v", cat)
	}

	rec = do(t, s, http.MethodPost, "/api/budgets", "alice", `{"name":"Food","category_id":"`+cat.ID+`","amount":"300"}`)
	mustStatus(t, rec, http.StatusCreated)
	budget := decode[core.Budget](t, rec)
	if budget.Period != core.PeriodMonthly || !budget.StartDate.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected budget defaults %+v", budget)
	}

	rec = do(t, s, http.MethodPost, "/api/transactions", "alice", `{"category_id":"`+cat.ID+`","amount":"-380","type":"expense","description":"weekly shop"}`)
	mustStatus(t, rec, http.StatusCreated)
	tx := decode[core.Transaction](t, rec)
	if tx.Status != core.Completed || !tx.TransactionDate.Equal(fixedNow) {
		t.Fatalf("unexpected transaction defaults %+v", tx)
	}

	rec = do(t, s, http.MethodGet, "/api/budgets/metrics?sort=utilization", "alice", "")
	mustStatus(t, rec, http.StatusOK)
	metrics := decode[[]core.BudgetMetrics](t, rec)
	if len(metrics) != 1 {
		t.Fatalf("expected 1 metric, got %d", len(metrics))
	}
	m := metrics[0]
	if m.Status != core.StatusOver || m.Percentage != 100 || m.OverBy.Cents != 8000 || m.CategoryName != "Groceries" {
		t.Fatalf("unexpected metric %+v", m)
	}
	if math.Abs(m.PercentRaw-126.6667) > 0.001 {
		t.Errorf("PercentRaw = %v, want about 126.67", m.PercentRaw)
	}

	rec = do(t, s, http.MethodGet, "/api/budgets/summary", "alice", "")
	mustStatus(t, rec, http.StatusOK)
	if sum := decode[core.BudgetSummary](t, rec); sum.OverCount != 1 || sum.BudgetCount != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}

	rec = do(t, s, http.MethodGet, "/api/alerts", "alice", "")
	mustStatus(t, rec, http.StatusOK)
	if alerts := decode[[]core.BudgetAlert](t, rec); len(alerts) != 1 || alerts[0].Status != core.StatusOver {
		t.Errorf("unexpected alerts %+v", alerts)
	}

	rec = do(t, s, http.MethodGet, "/api/budgets/groups", "alice", "")
	mustStatus(t, rec, http.StatusOK)
	if groups := decode[[]core.CategoryGroup](t, rec); len(groups) != 1 || groups[0].Spent.Cents != 38000 {
		t.Errorf("unexpected groups %+v", groups)
	}

	rec = do(t, s, http.MethodGet, "/api/transactions?year=2025&month=6", "alice", "")
	mustStatus(t, rec, http.StatusOK)
	if txs := decode[[]core.Transaction](t, rec); len(txs) != 1 {
		t.Errorf("expected 1 transaction, got %d", len(txs))
	}

	rec = do(t, s, http.MethodGet, "/api/overview", "alice", "")
	mustStatus(t, rec, http.StatusOK)
	if ov := decode[core.MonthOverview](t, rec); ov.Year != 2025 || ov.Month != 6 || len(ov.ByCategory) != 1 {
		t.Errorf("unexpected overview %+v", ov)
	}

	// Other users see nothing.
	rec = do(t, s, http.MethodGet, "/api/budgets/metrics?user=bob", "", "")
	mustStatus(t, rec, http.StatusOK)
	if got := decode[[]core.BudgetMetrics](t, rec); len(got) != 0 {
		t.Errorf("bob sees %d metrics", len(got))
	}

	rec = do(t, s, http.MethodPut, "/api/budgets/"+budget.ID, "alice", `{"name":"Food","category_id":"`+cat.ID+`","amount":"500","start_date":"2025-06-01"}`)
	mustStatus(t, rec, http.StatusOK)
	rec = do(t, s, http.MethodGet, "/api/budgets/metrics", "alice", "")
	if m := decode[[]core.BudgetMetrics](t, rec)[0]; m.Status != core.StatusGood || m.Remaining.Cents != 12000 {
		t.Errorf("metrics not refreshed after update: %+v", m)
	}

	mustStatus(t, do(t, s, http.MethodDelete, "/api/transactions/"+tx.ID, "alice", ""), http.StatusNoContent)
	mustStatus(t, do(t, s, http.MethodDelete, "/api/budgets/"+budget.ID, "alice", ""), http.StatusNoContent)
	mustStatus(t, do(t, s, http.MethodDelete, "/api/budgets/"+budget.ID, "alice", ""), http.StatusNotFound)

	rec = do(t, s, http.MethodGet, "/api/budgets", "alice", "")
	mustStatus(t, rec, http.StatusOK)
	if got := decode[[]core.Budget](t, rec); len(got) != 0 {
		t.Errorf("expected no budgets, got %d", len(got))
	}
}

func TestServer_GoalsAndBills(t *testing.T) {
	s := newTestServer(t, Options{})

	mustStatus(t, do(t, s, http.MethodPost, "/api/goals", "alice",
		`{"name":"Trip","target_amount":"1000","current_amount":"250","target_date":"2025-12-31"}`), http.StatusCreated)
	rec := do(t, s, http.MethodGet, "/api/goals", "alice", "")
	mustStatus(t, rec, http.StatusOK)
	goals := decode[[]core.GoalProgress](t, rec)
	if len(goals) != 1 || goals[0].Percentage != 25 || goals[0].Remaining.Cents != 75000 {
		t.Fatalf("unexpected goals %+v", goals)
	}

	mustStatus(t, do(t, s, http.MethodPost, "/api/bills", "alice",
		`{"name":"Rent","amount":"900","every":"monthly","start_date":"2025-01-20"}`), http.StatusCreated)
	mustStatus(t, do(t, s, http.MethodPost, "/api/accounts", "alice", `{"name":"Checking","type":"Bank","balance":"-12.50"}`), http.StatusCreated)
	mustStatus(t, do(t, s, http.MethodPost, "/api/accounts", "alice", `{"name":"","type":"bank"}`), http.StatusUnprocessableEntity)
	rec = do(t, s, http.MethodGet, "/api/accounts", "alice", "")
	mustStatus(t, rec, http.StatusOK)
	if accounts := decode[[]core.Account](t, rec); len(accounts) != 1 || accounts[0].Balance.Cents != -1250 || accounts[0].Type != "bank" {
		t.Fatalf("unexpected accounts %+v", accounts)
	}

	rec = do(t, s, http.MethodGet, "/api/bills/upcoming?days=10", "alice", "")
	mustStatus(t, rec, http.StatusOK)
	bills := decode[[]services.UpcomingBill](t, rec)
	if len(bills) != 1 || bills[0].DueDate.Day() != 20 || bills[0].Bill.Name != "Rent" {
		t.Fatalf("unexpected upcoming bills %+v", bills)
	}
}

func TestServer_RequestErrors(t *testing.T) {
	s := newTestServer(t, Options{MaxBodyBytes: 256})

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   string
		want   int
	}{
		{"missing user", http.MethodGet, "/api/budgets/metrics", "", "", http.StatusBadRequest},
		{"invalid user", http.MethodGet, "/api/budgets/metrics", "bad user!", "", http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/api/budgets", "alice", `{"name":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/budgets", "alice", `{"name":"Food","amount":"10","colour":"red"}`, http.StatusBadRequest},
		{"trailing data", http.MethodPost, "/api/categories", "alice", `{"name":"A","type":"expense"} {}`, http.StatusBadRequest},
		{"exponent amount", http.MethodPost, "/api/budgets", "alice", `{"name":"Food","amount":"1e3"}`, http.StatusUnprocessableEntity},
		{"negative budget amount", http.MethodPost, "/api/budgets", "alice", `{"name":"Food","amount":"-5"}`, http.StatusUnprocessableEntity},
		{"empty budget name", http.MethodPost, "/api/budgets", "alice", `{"name":" ","amount":"10"}`, http.StatusUnprocessableEntity},
		{"bad period", http.MethodPost, "/api/budgets", "alice", `{"name":"Food","amount":"10","period":"daily"}`, http.StatusUnprocessableEntity},
		{"bad date", http.MethodPost, "/api/budgets", "alice", `{"name":"Food","amount":"10","start_date":"18/06/2025"}`, http.StatusUnprocessableEntity},
		{"zero transaction amount", http.MethodPost, "/api/transactions", "alice", `{"amount":"0","type":"expense"}`, http.StatusUnprocessableEntity},
		{"bad category type", http.MethodPost, "/api/categories", "alice", `{"name":"X","type":"transfer"}`, http.StatusUnprocessableEntity},
		{"invalid month", http.MethodGet, "/api/transactions?month=13", "alice", "", http.StatusBadRequest},
		{"invalid year", http.MethodGet, "/api/overview?year=abc", "alice", "", http.StatusBadRequest},
		{"invalid days", http.MethodGet, "/api/bills/upcoming?days=0", "alice", "", http.StatusBadRequest},
		{"update unknown budget", http.MethodPut, "/api/budgets/nope", "alice", `{"name":"Food","amount":"10"}`, http.StatusNotFound},
		{"delete unknown transaction", http.MethodDelete, "/api/transactions/nope", "alice", "", http.StatusNotFound},
		{"body too large", http.MethodPost, "/api/categories", "alice", `{"name":"` + strings.Repeat("x", 400) + `","type":"expense"}`, http.StatusRequestEntityTooLarge},
		{"method not allowed", http.MethodPatch, "/api/budgets", "alice", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.path, tt.user, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want != http.StatusMethodNotAllowed {
				if got := decode[errorResponse](t, rec); got.Error == "" {
					t.Error("expected an error message")
				}
			}
		})
	}
}

type failingAPI struct {
	BudgetAPI
	err error
}

func (f failingAPI) Ready(context.Context) error { return f.err }

func (f failingAPI) Metrics(context.Context, string, bool) ([]core.BudgetMetrics, error) {
	return nil, f.err
}

func TestServer_StorageFailures(t *testing.T) {
	s := NewServer(":0", failingAPI{err: errors.New("disk on fire")}, applog.Discard(), Options{})
	defer s.Shutdown(context.Background())

	rec := do(t, s, http.MethodGet, "/api/budgets/metrics", "alice", "")
	mustStatus(t, rec, http.StatusInternalServerError)
	if got := decode[errorResponse](t, rec); got.Error != "internal server error" {
		t.Errorf("storage details leaked: %q", got.Error)
	}

	mustStatus(t, do(t, s, http.MethodGet, "/readyz", "", ""), http.StatusServiceUnavailable)
	mustStatus(t, do(t, s, http.MethodGet, "/healthz", "", ""), http.StatusOK)

	if m := s.TraceMetrics(); m.TotalRequests != 3 || m.ServerErrors != 2 {
		t.Errorf("unexpected trace metrics %+v", m)
	}
}

func TestServer_HeadersAndRateLimit(t *testing.T) {
	s := newTestServer(t, Options{WritesPerMinute: 1})

	rec := do(t, s, http.MethodGet, "/readyz", "", "")
	mustStatus(t, rec, http.StatusOK)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}

	body := `{"name":"Books","type":"expense"}`
	mustStatus(t, do(t, s, http.MethodPost, "/api/categories", "alice", body), http.StatusCreated)
	rec = do(t, s, http.MethodPost, "/api/categories", "alice", body)
	mustStatus(t, rec, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") != "60" {
		t.Error("missing Retry-After")
	}
	// Reads are never limited.
	mustStatus(t, do(t, s, http.MethodGet, "/api/categories", "alice", ""), http.StatusOK)
}
