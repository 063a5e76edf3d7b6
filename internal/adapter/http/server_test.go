package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"microloan-ledger/internal/adapter/mirror"
	"microloan-ledger/internal/adapter/repository/serial"
	domainLoan "microloan-ledger/internal/domain/loan"
	"microloan-ledger/internal/domain/user"
	"microloan-ledger/internal/infrastructure/metrics"
	"microloan-ledger/internal/testutil/memstore"
	"microloan-ledger/internal/usecase/approval"
	"microloan-ledger/internal/usecase/funding"
	"microloan-ledger/internal/usecase/loan"
	"microloan-ledger/internal/usecase/stats"
	useruc "microloan-ledger/internal/usecase/user"
)

// -------- helpers --------

type fixture struct {
	e     *echo.Echo
	store *memstore.Store
}

func newFixture(t *testing.T, mut func(d *Deps)) *fixture {
	t.Helper()
	store := memstore.New()
	store.Seed(nil, []user.User{
		{ID: 1, Username: "root", Role: user.RoleAdmin, Balance: decimal.Zero},
		{ID: 2, Username: "bob", Role: user.RoleBorrower, Balance: decimal.Zero},
		{ID: 3, Username: "lena", Role: user.RoleLender, Balance: decimal.NewFromInt(1000)},
		{ID: 4, Username: "poor", Role: user.RoleLender, Balance: decimal.NewFromInt(10)},
	})
	tx := serial.New(store.Repos())
	d := Deps{
		Loans:    loan.NewUsecase(tx, nil),
		Funding:  funding.NewUsecase(tx, nil, decimal.NewFromInt(10)),
		Approval: approval.NewUsecase(tx, nil),
		Stats:    stats.NewUsecase(store.Repos()),
		Users:    useruc.NewUsecase(tx, useruc.DefaultLenderBalance).WithCost(bcrypt.MinCost),
	}
	if mut != nil {
		mut(&d)
	}
	return &fixture{e: NewServer(d), store: store}
}

func (f *fixture) do(t *testing.T, method, path, as string, body any, extra ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if as != "" {
		req.Header.Set("Ax-Username", as)
	}
	for i := 0; i+1 < len(extra); i += 2 {
		req.Header.Set(extra[i], extra[i+1])
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("bad json %q: %v", rec.Body.String(), err)
	}
	return v
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, code int) {
	t.Helper()
	if rec.Code != code {
		t.Fatalf("status = %d, want %d, body=%s", rec.Code, code, rec.Body.String())
	}
}

func (f *fixture) createLoan(t *testing.T, amount string, months int) domainLoan.Loan {
	t.Helper()
	rec := f.do(t, stdhttp.MethodPost, "/loans", "bob", map[string]any{"amount": amount, "duration_months": months, "description": "stall"})
	wantStatus(t, rec, stdhttp.StatusCreated)
	return decode[domainLoan.Loan](t, rec)
}

// -------- tests --------

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, stdhttp.MethodGet, "/health", "", nil)
	wantStatus(t, rec, stdhttp.StatusOK)
	if decode[map[string]any](t, rec)["status"] != "ok" {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestLifecycle_CreateFundApprove(t *testing.T) {
	f := newFixture(t, nil)

	created := f.createLoan(t, "500", 6)
	if created.Status != domainLoan.StatusPending || created.BorrowerUsername != "bob" {
		t.Fatalf("created = %+v", created)
	}

	rec := f.do(t, stdhttp.MethodGet, "/loans/available", "lena", nil)
	wantStatus(t, rec, stdhttp.StatusOK)
	views := decode[[]loan.LoanView](t, rec)
	if len(views) != 1 || views[0].Borrower != "bo****" {
		t.Fatalf("available = %+v", views)
	}

	rec = f.do(t, stdhttp.MethodPost, "/loans/"+created.ID+"/fund", "lena", nil)
	wantStatus(t, rec, stdhttp.StatusOK)
	funded := decode[domainLoan.Loan](t, rec)
	if funded.Status != domainLoan.StatusApprovedByLender ||
		funded.InterestAmount.Decimal.StringFixed(2) != "25.00" ||
		funded.TotalRepayment.Decimal.StringFixed(2) != "525.00" {
		t.Fatalf("funded = %+v", funded)
	}

	rec = f.do(t, stdhttp.MethodGet, "/me", "lena", nil)
	wantStatus(t, rec, stdhttp.StatusOK)
	me := decode[useruc.UserDTO](t, rec)
	if me.Balance.StringFixed(2) != "500.00" {
		t.Fatalf("lender balance = %s", me.Balance)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatal("password hash leaked")
	}

	rec = f.do(t, stdhttp.MethodPost, "/loans/"+created.ID+"/approve", "root", nil)
	wantStatus(t, rec, stdhttp.StatusOK)
	approved := decode[domainLoan.Loan](t, rec)
	if approved.Status != domainLoan.StatusFunded || approved.ApprovedAt == nil {
		t.Fatalf("approved = %+v", approved)
	}

	rec = f.do(t, stdhttp.MethodGet, "/loans/"+created.ID, "bob", nil)
	wantStatus(t, rec, stdhttp.StatusOK)
	detail := decode[loan.LoanDetail](t, rec)
	if detail.ID != created.ID || detail.Overdue || detail.AgeDays != 0 ||
		detail.MonthlyPayment.Decimal.StringFixed(2) != "87.50" {
		t.Fatalf("detail = %+v", detail)
	}
	if !strings.Contains(rec.Body.String(), `"monthly_payment"`) || !strings.Contains(rec.Body.String(), `"age_days"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}

	rec = f.do(t, stdhttp.MethodGet, "/stats", "root", nil)
	wantStatus(t, rec, stdhttp.StatusOK)
	s := decode[stats.Stats](t, rec)
	if s.TotalLoans != 1 || s.FundedLoans != 1 || s.PendingLoans != 0 {
		t.Fatalf("stats = %+v", s)
	}

	for _, who := range []string{"bob", "lena"} {
		rec = f.do(t, stdhttp.MethodGet, "/loans/mine", who, nil)
		wantStatus(t, rec, stdhttp.StatusOK)
		if mine := decode[[]domainLoan.Loan](t, rec); len(mine) != 1 {
			t.Fatalf("%s mine = %d", who, len(mine))
		}
	}
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t, nil)
	l := f.createLoan(t, "500", 6)
	other := f.createLoan(t, "100", 1)

	wantStatus(t, f.do(t, stdhttp.MethodPost, "/loans/"+l.ID+"/fund", "bob", nil), stdhttp.StatusForbidden)
	wantStatus(t, f.do(t, stdhttp.MethodPost, "/loans/nope/fund", "lena", nil), stdhttp.StatusNotFound)
	wantStatus(t, f.do(t, stdhttp.MethodPost, "/loans/"+l.ID+"/fund", "poor", nil), stdhttp.StatusUnprocessableEntity)
	wantStatus(t, f.do(t, stdhttp.MethodPost, "/loans/"+l.ID+"/approve", "root", nil), stdhttp.StatusConflict)

	wantStatus(t, f.do(t, stdhttp.MethodPost, "/loans/"+l.ID+"/fund", "lena", nil), stdhttp.StatusOK)
	rec := f.do(t, stdhttp.MethodPost, "/loans/"+l.ID+"/fund", "lena", nil)
	wantStatus(t, rec, stdhttp.StatusConflict)
	if decode[ErrorResponse](t, rec).Code != "unavailable" {
		t.Fatalf("body = %s", rec.Body.String())
	}

	wantStatus(t, f.do(t, stdhttp.MethodPost, "/loans/"+l.ID+"/approve", "root", nil), stdhttp.StatusOK)
	rec = f.do(t, stdhttp.MethodPost, "/loans/"+l.ID+"/reject", "root", nil)
	wantStatus(t, rec, stdhttp.StatusConflict)
	if decode[ErrorResponse](t, rec).Code != "invalid_state" {
		t.Fatalf("body = %s", rec.Body.String())
	}
	wantStatus(t, f.do(t, stdhttp.MethodPost, "/loans/"+other.ID+"/reject", "root", nil), stdhttp.StatusOK)

	wantStatus(t, f.do(t, stdhttp.MethodGet, "/loans", "bob", nil), stdhttp.StatusForbidden)
	wantStatus(t, f.do(t, stdhttp.MethodGet, "/loans", "root", nil), stdhttp.StatusOK)
	wantStatus(t, f.do(t, stdhttp.MethodGet, "/loans/available", "bob", nil), stdhttp.StatusForbidden)
	wantStatus(t, f.do(t, stdhttp.MethodGet, "/stats", "lena", nil), stdhttp.StatusForbidden)
	wantStatus(t, f.do(t, stdhttp.MethodGet, "/loans/"+l.ID, "poor", nil), stdhttp.StatusForbidden)
	wantStatus(t, f.do(t, stdhttp.MethodGet, "/loans/"+l.ID, "lena", nil), stdhttp.StatusOK)
	wantStatus(t, f.do(t, stdhttp.MethodGet, "/loans/"+l.ID, "ghost", nil), stdhttp.StatusUnauthorized)
	wantStatus(t, f.do(t, stdhttp.MethodGet, "/me", "", nil), stdhttp.StatusUnauthorized)
}

func TestCreateLoan_Validation(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"three decimals", map[string]any{"amount": "10.005", "duration_months": 1}, "amount"},
		{"negative", map[string]any{"amount": -5, "duration_months": 1}, "amount"},
		{"missing amount", map[string]any{"duration_months": 1}, "amount"},
		{"zero months", map[string]any{"amount": "10", "duration_months": 0}, "duration_months"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, stdhttp.MethodPost, "/loans", "bob", tt.body)
			wantStatus(t, rec, stdhttp.StatusBadRequest)
			if !containsField(decode[ErrorResponse](t, rec).Details, tt.field) {
				t.Fatalf("details missing %s: %s", tt.field, rec.Body.String())
			}
		})
	}

	wantStatus(t, f.do(t, stdhttp.MethodPost, "/loans", "bob", `{"amount":`), stdhttp.StatusBadRequest)
	// numeric JSON amounts are accepted too
	wantStatus(t, f.do(t, stdhttp.MethodPost, "/loans", "bob", map[string]any{"amount": 12.5, "duration_months": 2}), stdhttp.StatusCreated)
	// lenders cannot request loans
	wantStatus(t, f.do(t, stdhttp.MethodPost, "/loans", "lena", map[string]any{"amount": "10", "duration_months": 2}), stdhttp.StatusForbidden)
}

func containsField(list []FieldError, field string) bool {
	for _, e := range list {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, stdhttp.MethodPost, "/users", "", map[string]any{"username": "leo", "password": "Secret123", "role": "lender"})
	wantStatus(t, rec, stdhttp.StatusCreated)
	u := decode[useruc.UserDTO](t, rec)
	if u.ID != 5 || u.Balance.StringFixed(2) != "1000.00" || u.Role != user.RoleLender {
		t.Fatalf("registered = %+v", u)
	}

	wantStatus(t, f.do(t, stdhttp.MethodPost, "/users", "", map[string]any{"username": "leo", "password": "Secret123"}), stdhttp.StatusBadRequest)
	wantStatus(t, f.do(t, stdhttp.MethodPost, "/users", "", map[string]any{"username": "eve", "password": "weak"}), stdhttp.StatusBadRequest)
	rec = f.do(t, stdhttp.MethodPost, "/users", "", map[string]any{"username": "eve", "password": "Secret123", "role": "admin"})
	wantStatus(t, rec, stdhttp.StatusBadRequest)
	if !containsField(decode[ErrorResponse](t, rec).Details, "role") {
		t.Fatalf("body = %s", rec.Body.String())
	}

	wantStatus(t, f.do(t, stdhttp.MethodPost, "/login", "", map[string]any{"username": "leo", "password": "Secret123"}), stdhttp.StatusOK)
	wantStatus(t, f.do(t, stdhttp.MethodPost, "/login", "", map[string]any{"username": "leo", "password": "Nope12345"}), stdhttp.StatusUnauthorized)
}

func TestPartialCommit_Is500WithCode(t *testing.T) {
	f := newFixture(t, nil)
	l := f.createLoan(t, "500", 6)
	f.store.FailUserWrites(1)

	rec := f.do(t, stdhttp.MethodPost, "/loans/"+l.ID+"/fund", "lena", nil)
	wantStatus(t, rec, stdhttp.StatusInternalServerError)
	body := decode[ErrorResponse](t, rec)
	if body.Code != "partial_commit" || !strings.Contains(body.Error, l.ID) {
		t.Fatalf("body = %+v", body)
	}
}

func TestIdempotentFund(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	f := newFixture(t, func(d *Deps) {
		d.Redis = rdb
		d.IdempotencyTTL = time.Minute
	})

	hdr := func(id string) []string {
		return []string{"Ax-Request-Id", id, "Ax-Request-At", time.Now().UTC().Format(time.RFC3339)}
	}
	rec := f.do(t, stdhttp.MethodPost, "/loans", "bob", map[string]any{"amount": "500", "duration_months": 6}, hdr("11111111111111111111111111111111")...)
	wantStatus(t, rec, stdhttp.StatusCreated)
	l := decode[domainLoan.Loan](t, rec)

	path := "/loans/" + l.ID + "/fund"
	first := f.do(t, stdhttp.MethodPost, path, "lena", nil, hdr("22222222222222222222222222222222")...)
	second := f.do(t, stdhttp.MethodPost, path, "lena", nil, hdr("22222222222222222222222222222222")...)
	wantStatus(t, first, stdhttp.StatusOK)
	wantStatus(t, second, stdhttp.StatusOK)
	if first.Body.String() != second.Body.String() {
		t.Fatal("retry must replay the first response")
	}
	u, _ := f.store.User("lena")
	if !u.Balance.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("balance = %s, want a single debit", u.Balance)
	}

	wantStatus(t, f.do(t, stdhttp.MethodPost, path, "lena", nil), stdhttp.StatusBadRequest)
}

type fakeEvents struct {
	got string
	err error
}

func (f *fakeEvents) Events(_ context.Context, eventType string) ([]mirror.Event, error) {
	f.got = eventType
	if f.err != nil {
		return nil, f.err
	}
	return []mirror.Event{{EventType: "loan_funded", Data: json.RawMessage(`{}`)}}, nil
}

func TestLedgerEventsAndMetrics(t *testing.T) {
	ev := &fakeEvents{}
	f := newFixture(t, func(d *Deps) {
		d.Events = ev
		d.Metrics = metrics.Handler()
	})

	rec := f.do(t, stdhttp.MethodGet, "/ledger/events?type=loan_funded", "root", nil)
	wantStatus(t, rec, stdhttp.StatusOK)
	if ev.got != "loan_funded" || len(decode[[]mirror.Event](t, rec)) != 1 {
		t.Fatalf("events = %s", rec.Body.String())
	}
	wantStatus(t, f.do(t, stdhttp.MethodGet, "/ledger/events", "bob", nil), stdhttp.StatusForbidden)

	ev.err = errors.New("node down")
	wantStatus(t, f.do(t, stdhttp.MethodGet, "/ledger/events", "root", nil), stdhttp.StatusBadGateway)

	wantStatus(t, f.do(t, stdhttp.MethodGet, "/metrics", "", nil), stdhttp.StatusOK)

	bare := newFixture(t, nil)
	wantStatus(t, bare.do(t, stdhttp.MethodGet, "/ledger/events", "root", nil), stdhttp.StatusNotFound)
	wantStatus(t, bare.do(t, stdhttp.MethodGet, "/metrics", "", nil), stdhttp.StatusNotFound)
}

func TestStatusFor(t *testing.T) {
	tests := map[string]int{
		"validation":           stdhttp.StatusBadRequest,
		"forbidden":            stdhttp.StatusForbidden,
		"not_found":            stdhttp.StatusNotFound,
		"conflict":             stdhttp.StatusConflict,
		"insufficient_balance": stdhttp.StatusUnprocessableEntity,
		"persistence":          stdhttp.StatusInternalServerError,
		"internal":             stdhttp.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := statusFor(kind); got != want {
			t.Errorf("statusFor(%s) = %d, want %d", kind, got, want)
		}
	}
}
