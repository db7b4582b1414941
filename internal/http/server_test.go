package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/naramuhl/finance-friend-central/internal/records/memory"
	"github.com/naramuhl/finance-friend-central/internal/services"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	sessions := services.NewSessionManager(memory.New(), nil, services.SessionManagerConfig{TTL: time.Hour}, nil).
		WithClock(func() time.Time { return testNow })
	if cfg.RateLimitPerMinute == 0 {
		cfg.RateLimitPerMinute = 1000
	}
	s := NewServer(cfg, sessions)
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
		sessions.Close()
	})
	return s
}

func do(s *Server, method, path, user, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set(UserIDHeader, user)
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func startSession(t *testing.T, s *Server, user string) sessionResponse {
	t.Helper()
	rec := do(s, http.MethodPost, "/api/session", user, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("start session: status %d, body %s", rec.Code, rec.Body)
	}
	return decode[sessionResponse](t, rec)
}

func TestHealthAndReadiness(t *testing.T) {
	s := newTestServer(t, Config{})
	if rec := do(s, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	if rec := do(s, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz = %d", rec.Code)
	}

	failing := newTestServer(t, Config{Ready: func(context.Context) error { return errors.New("db down") }})
	if rec := do(failing, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz with failing check = %d, want 503", rec.Code)
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	s := newTestServer(t, Config{})
	rec := do(s, http.MethodGet, "/healthz", "", "")
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
}

func TestSessionRequired(t *testing.T) {
	s := newTestServer(t, Config{})

	tests := []struct {
		name   string
		user   string
		status int
	}{
		{"missing user header", "", http.StatusUnauthorized},
		{"control characters in user", "bad\x01user", http.StatusUnauthorized},
		{"no session started", "alice", http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, http.MethodGet, "/api/summary", tt.user, "")
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body)
			}
		})
	}
}

func TestStartSessionCreatesPrimaryAccount(t *testing.T) {
	s := newTestServer(t, Config{})
	resp := startSession(t, s, "alice")
	if resp.UserID != "alice" {
		t.Errorf("userId = %q", resp.UserID)
	}
	if resp.PrimaryAccount == nil || !resp.PrimaryAccount.IsActive {
		t.Fatalf("expected an active primary account, got %+v", resp.PrimaryAccount)
	}

	rec := do(s, http.MethodDelete, "/api/session", "alice", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("end session = %d", rec.Code)
	}
	if rec := do(s, http.MethodGet, "/api/summary", "alice", ""); rec.Code != http.StatusConflict {
		t.Errorf("summary after end = %d, want 409", rec.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t, Config{})
	primary := startSession(t, s, "alice").PrimaryAccount

	rec := do(s, http.MethodPost, "/api/transactions", "alice",
		`{"description":"Salário","amount":"1500.00","dueDate":"2025-03-05","type":"receivable","category":"Trabalho"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d, body %s", rec.Code, rec.Body)
	}
	var tx struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tx); err != nil {
		t.Fatal(err)
	}
	if tx.Status != "pending" {
		t.Errorf("new transaction status = %q, want pending", tx.Status)
	}

	rec = do(s, http.MethodPost, "/api/transactions/"+tx.ID+"/toggle", "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle = %d, body %s", rec.Code, rec.Body)
	}

	summary := decode[sessionResponse](t, do(s, http.MethodGet, "/api/summary", "alice", ""))
	if summary.PrimaryAccount == nil || summary.PrimaryAccount.ID != primary.ID {
		t.Fatalf("primary account changed: %+v", summary.PrimaryAccount)
	}
	if summary.PrimaryAccount.Balance.Cents != 150000 {
		t.Errorf("primary balance = %d cents, want 150000", summary.PrimaryAccount.Balance.Cents)
	}
	if summary.Summary.PaidReceivables.Cents != 150000 {
		t.Errorf("paid receivables = %d cents, want 150000", summary.Summary.PaidReceivables.Cents)
	}

	list := decode[listResponse[json.RawMessage]](t, do(s, http.MethodGet, "/api/transactions?type=payable", "alice", ""))
	if len(list.Items) != 0 {
		t.Errorf("payables = %d items, want 0", len(list.Items))
	}

	if rec := do(s, http.MethodDelete, "/api/transactions/"+tx.ID, "alice", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d", rec.Code)
	}
	if rec := do(s, http.MethodDelete, "/api/transactions/"+tx.ID, "alice", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rec.Code)
	}
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer(t, Config{})
	startSession(t, s, "alice")

	tests := []struct {
		name      string
		method    string
		path      string
		body      string
		status    int
		wantField string
	}{
		{
			name:      "unknown category",
			method:    http.MethodPost,
			path:      "/api/transactions",
			body:      `{"description":"x","amount":10,"dueDate":"2025-03-05","type":"payable","category":"Viagem"}`,
			status:    http.StatusUnprocessableEntity,
			wantField: "category",
		},
		{
			name:      "amount with three decimals",
			method:    http.MethodPost,
			path:      "/api/transactions",
			body:      `{"description":"x","amount":"1.005","dueDate":"2025-03-05","type":"payable","category":"Contas"}`,
			status:    http.StatusUnprocessableEntity,
			wantField: "body",
		},
		{
			name:   "unknown field",
			method: http.MethodPost,
			path:   "/api/accounts",
			body:   `{"name":"Nubank","colour":"red"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "malformed json",
			method: http.MethodPost,
			path:   "/api/goals",
			body:   `{"name":`,
			status: http.StatusBadRequest,
		},
		{
			name:      "wrong json type",
			method:    http.MethodPost,
			path:      "/api/goals",
			body:      `{"name":42}`,
			status:    http.StatusUnprocessableEntity,
			wantField: "name",
		},
		{
			name:      "income patch without isActive",
			method:    http.MethodPatch,
			path:      "/api/incomes/missing",
			body:      `{}`,
			status:    http.StatusUnprocessableEntity,
			wantField: "isActive",
		},
		{
			name:      "bad transaction type filter",
			method:    http.MethodGet,
			path:      "/api/transactions?type=transfer",
			status:    http.StatusUnprocessableEntity,
			wantField: "type",
		},
		{
			name:      "bad month",
			method:    http.MethodGet,
			path:      "/api/charts/monthly?month=2025-13",
			status:    http.StatusUnprocessableEntity,
			wantField: "month",
		},
		{
			name:      "reversed patrimony range",
			method:    http.MethodGet,
			path:      "/api/charts/patrimony?from=2025-03-10&to=2025-03-01",
			status:    http.StatusUnprocessableEntity,
			wantField: "from",
		},
		{
			name:   "unknown account",
			method: http.MethodPost,
			path:   "/api/accounts/nope/adjust",
			body:   `{"amount":5}`,
			status: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, tt.method, tt.path, "alice", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body)
			}
			body := decode[errorResponse](t, rec)
			if body.Error == "" {
				t.Error("error message must not be empty")
			}
			if body.Field != tt.wantField {
				t.Errorf("field = %q, want %q", body.Field, tt.wantField)
			}
		})
	}
}

func TestAccountsAndIncomes(t *testing.T) {
	s := newTestServer(t, Config{})
	startSession(t, s, "alice")

	rec := do(s, http.MethodPost, "/api/accounts", "alice", `{"name":"Poupança","balance":"200","accountType":"savings"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account = %d, body %s", rec.Code, rec.Body)
	}
	var acc struct {
		ID    string `json:"id"`
		Color string `json:"color"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &acc); err != nil {
		t.Fatal(err)
	}
	if acc.Color != "blue" {
		t.Errorf("default color = %q, want blue", acc.Color)
	}

	rec = do(s, http.MethodPost, "/api/accounts/"+acc.ID+"/adjust", "alice", `{"amount":"-50.25"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("adjust = %d, body %s", rec.Code, rec.Body)
	}
	if rec := do(s, http.MethodPatch, "/api/accounts/"+acc.ID, "alice", `{"name":"  Reserva  "}`); rec.Code != http.StatusOK {
		t.Fatalf("patch = %d, body %s", rec.Code, rec.Body)
	}
	rec = do(s, http.MethodDelete, "/api/accounts/"+acc.ID, "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate = %d, body %s", rec.Code, rec.Body)
	}
	var deactivated struct {
		Name     string `json:"name"`
		IsActive bool   `json:"isActive"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &deactivated); err != nil {
		t.Fatalf("decode %s: %v", rec.Body, err)
	}
	if deactivated.IsActive || deactivated.Name != "Reserva" {
		t.Errorf("deactivated account = %+v", deactivated)
	}

	rec = do(s, http.MethodPost, "/api/incomes", "alice", `{"name":"Aluguel","amount":800,"frequency":"monthly"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create income = %d, body %s", rec.Code, rec.Body)
	}
	var src struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &src)

	summary := decode[sessionResponse](t, do(s, http.MethodGet, "/api/summary", "alice", ""))
	if summary.Summary.MonthlyIncome.Cents != 80000 {
		t.Errorf("monthly income = %d cents, want 80000", summary.Summary.MonthlyIncome.Cents)
	}

	if rec := do(s, http.MethodPatch, "/api/incomes/"+src.ID, "alice", `{"isActive":false}`); rec.Code != http.StatusOK {
		t.Fatalf("deactivate income = %d, body %s", rec.Code, rec.Body)
	}
	summary = decode[sessionResponse](t, do(s, http.MethodGet, "/api/summary", "alice", ""))
	if !summary.Summary.MonthlyIncome.IsZero() {
		t.Errorf("inactive income must not count, got %d cents", summary.Summary.MonthlyIncome.Cents)
	}
	if rec := do(s, http.MethodDelete, "/api/incomes/"+src.ID, "alice", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete income = %d", rec.Code)
	}
}

func TestGoalLifecycle(t *testing.T) {
	s := newTestServer(t, Config{})
	startSession(t, s, "alice")

	rec := do(s, http.MethodPost, "/api/goals", "alice", `{"name":"Viagem","targetAmount":1000,"deadline":"2025-03-15"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create goal = %d, body %s", rec.Code, rec.Body)
	}
	var goal struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &goal)

	rec = do(s, http.MethodPost, "/api/goals/"+goal.ID+"/contribute", "alice", `{"amount":250}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("contribute = %d, body %s", rec.Code, rec.Body)
	}

	goals := decode[listResponse[services.GoalProgress]](t, do(s, http.MethodGet, "/api/goals", "alice", ""))
	if len(goals.Items) != 1 {
		t.Fatalf("goals = %d, want 1", len(goals.Items))
	}
	if got := goals.Items[0].ProgressPercent; got != 25 {
		t.Errorf("progress = %v, want 25", got)
	}

	notes := decode[listResponse[services.Notification]](t, do(s, http.MethodGet, "/api/notifications", "alice", ""))
	if len(notes.Items) == 0 {
		t.Error("expected a deadline notification for a goal due in 5 days")
	}
	notes = decode[listResponse[services.Notification]](t, do(s, http.MethodGet, "/api/notifications", "alice", ""))
	if len(notes.Items) != 0 {
		t.Errorf("notifications must be drained, got %d", len(notes.Items))
	}

	if rec := do(s, http.MethodPost, "/api/goals/"+goal.ID+"/complete", "alice", ""); rec.Code != http.StatusOK {
		t.Fatalf("complete = %d, body %s", rec.Code, rec.Body)
	}
	if rec := do(s, http.MethodPost, "/api/goals/"+goal.ID+"/contribute", "alice", `{"amount":10}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("contribute to completed goal = %d, want 422", rec.Code)
	}
	if rec := do(s, http.MethodDelete, "/api/goals/"+goal.ID, "alice", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete goal = %d", rec.Code)
	}
}

func TestRestartingSessionRescansGoals(t *testing.T) {
	var now atomic.Int64
	now.Store(testNow.UnixNano())
	sessions := services.NewSessionManager(memory.New(), nil, services.SessionManagerConfig{TTL: 24 * time.Hour}, nil).
		WithClock(func() time.Time { return time.Unix(0, now.Load()).UTC() })
	s := NewServer(Config{RateLimitPerMinute: 1000}, sessions)
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
		sessions.Close()
	})

	startSession(t, s, "alice")
	rec := do(s, http.MethodPost, "/api/goals", "alice", `{"name":"Reserva","targetAmount":1000,"currentAmount":900,"deadline":"2025-06-30"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create goal = %d, body %s", rec.Code, rec.Body)
	}
	notes := decode[listResponse[services.Notification]](t, do(s, http.MethodGet, "/api/notifications", "alice", ""))
	if len(notes.Items) != 0 {
		t.Fatalf("goal on track must not notify, got %+v", notes.Items)
	}

	now.Store(time.Date(2025, 7, 2, 9, 0, 0, 0, time.UTC).UnixNano())
	startSession(t, s, "alice")

	notes = decode[listResponse[services.Notification]](t, do(s, http.MethodGet, "/api/notifications", "alice", ""))
	if len(notes.Items) != 1 || notes.Items[0].Tier != services.TierOverdue {
		t.Fatalf("expected one overdue notification after restart, got %+v", notes.Items)
	}
}

func TestCharts(t *testing.T) {
	s := newTestServer(t, Config{})
	startSession(t, s, "alice")

	for _, body := range []string{
		`{"description":"Aluguel","amount":1200,"dueDate":"2025-03-01","type":"payable","category":"Moradia"}`,
		`{"description":"Mercado","amount":300,"dueDate":"2025-03-02","type":"payable","category":"Alimentação"}`,
		`{"description":"Luz","amount":100,"dueDate":"2025-02-20","type":"payable","category":"Contas"}`,
	} {
		if rec := do(s, http.MethodPost, "/api/transactions", "alice", body); rec.Code != http.StatusCreated {
			t.Fatalf("create = %d, body %s", rec.Code, rec.Body)
		}
	}

	categories := decode[listResponse[struct {
		Category string `json:"category"`
	}]](t, do(s, http.MethodGet, "/api/charts/expenses-by-category", "alice", ""))
	if len(categories.Items) != 3 || categories.Items[0].Category != "Moradia" {
		t.Errorf("categories = %+v, want Moradia first of 3", categories.Items)
	}

	rec := do(s, http.MethodGet, "/api/charts/monthly?month=2025-03", "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("monthly = %d", rec.Code)
	}
	var monthly struct {
		TotalPayables json.Number `json:"totalPayables"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &monthly); err != nil {
		t.Fatal(err)
	}
	if monthly.TotalPayables.String() != "1500.00" {
		t.Errorf("march payables = %s, want 1500.00", monthly.TotalPayables)
	}

	rec = do(s, http.MethodGet, "/api/charts/patrimony", "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("patrimony = %d, body %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `"items":[`) {
		t.Errorf("patrimony body = %s", rec.Body)
	}
}

func TestRateLimitAppliesToWrites(t *testing.T) {
	s := newTestServer(t, Config{RateLimitPerMinute: 1})

	if rec := do(s, http.MethodPost, "/api/session", "alice", ""); rec.Code != http.StatusOK {
		t.Fatalf("first write = %d", rec.Code)
	}
	rec := do(s, http.MethodPost, "/api/session", "alice", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second write = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 must carry Retry-After")
	}
	if rec := do(s, http.MethodPost, "/api/session", "bob", ""); rec.Code != http.StatusOK {
		t.Errorf("other user must have its own budget, got %d", rec.Code)
	}
	for i := 0; i < 3; i++ {
		if rec := do(s, http.MethodGet, "/api/summary", "alice", ""); rec.Code != http.StatusOK {
			t.Fatalf("read %d = %d, reads are not limited", i, rec.Code)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"no session", services.ErrNoSession, http.StatusConflict},
		{"session closed", services.ErrSessionClosed, http.StatusConflict},
		{"canceled", context.Canceled, http.StatusServiceUnavailable},
		{"wrapped body error", errors.Join(ErrInvalidBody, errors.New("x")), http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := statusFor(tt.err); got != tt.status {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.status)
			}
		})
	}
}
