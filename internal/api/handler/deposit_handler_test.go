package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/dropme/rvm-backend/internal/core/domain"
	"github.com/dropme/rvm-backend/internal/core/ports"
)

type stubDepositService struct {
	createFn func(ctx context.Context, in ports.CreateDepositInput) (*ports.DepositReceipt, error)
	listFn   func(ctx context.Context, f ports.ListDepositsFilter) ([]*domain.Deposit, int64, error)
	statsFn  func(ctx context.Context) (*ports.SystemStats, error)
}

func (s *stubDepositService) CreateDeposit(ctx context.Context, in ports.CreateDepositInput) (*ports.DepositReceipt, error) {
	return s.createFn(ctx, in)
}

func (s *stubDepositService) ListDeposits(ctx context.Context, f ports.ListDepositsFilter) ([]*domain.Deposit, int64, error) {
	return s.listFn(ctx, f)
}

func (s *stubDepositService) SystemStats(ctx context.Context) (*ports.SystemStats, error) {
	return s.statsFn(ctx)
}

func authenticate(c echo.Context, userID, role string) {
	c.Set("user_id", userID)
	c.Set("role", role)
}

func TestDepositHandler_Create_Success(t *testing.T) {
	stub := &stubDepositService{
		createFn: func(ctx context.Context, in ports.CreateDepositInput) (*ports.DepositReceipt, error) {
			if in.UserID != "user_1" || in.MachineID != "RVM-001" || in.MaterialName != "Plastic" {
				t.Fatalf("unexpected input: %+v", in)
			}
			if !in.WeightKg.Equal(decimal.RequireFromString("2.5")) {
				t.Fatalf("unexpected weight: %s", in.WeightKg)
			}
			return &ports.DepositReceipt{
				Deposit: domain.Deposit{
					TransactionID: "TXN-ABC123",
					UserID:        in.UserID,
					MachineID:     in.MachineID,
					MaterialName:  in.MaterialName,
					WeightKg:      in.WeightKg,
					PointsEarned:  decimal.RequireFromString("2.50"),
					CreatedAt:     time.Now().UTC(),
				},
				MachineLocation: "Cairo Mall",
				Totals: domain.Totals{
					TotalPoints:   decimal.RequireFromString("2.50"),
					TotalWeightKg: decimal.RequireFromString("2.5"),
				},
			}, nil
		},
	}
	h := NewDepositHandler(stub)

	c, rec := newTestContext(t, http.MethodPost, "/v1/deposits",
		`{"machine_id":"RVM-001","material":"Plastic","weight_kg":"2.5"}`)
	authenticate(c, "user_1", "user")

	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	dep, ok := resp["deposit"].(map[string]any)
	if !ok {
		t.Fatalf("expected deposit in response")
	}
	if dep["transaction_id"] != "TXN-ABC123" {
		t.Fatalf("unexpected transaction_id: %v", dep["transaction_id"])
	}
	if dep["points_earned"] != "2.50" {
		t.Fatalf("unexpected points_earned: %v", dep["points_earned"])
	}
	if resp["machine_location"] != "Cairo Mall" {
		t.Fatalf("unexpected machine_location: %v", resp["machine_location"])
	}
}

func TestDepositHandler_Create_Unauthenticated(t *testing.T) {
	stub := &stubDepositService{
		createFn: func(ctx context.Context, in ports.CreateDepositInput) (*ports.DepositReceipt, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewDepositHandler(stub)

	c, _ := newTestContext(t, http.MethodPost, "/v1/deposits",
		`{"machine_id":"RVM-001","material":"Plastic","weight_kg":"2.5"}`)

	err := h.Create(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 error, got %v", err)
	}
}

func TestDepositHandler_Create_MissingMachine(t *testing.T) {
	stub := &stubDepositService{
		createFn: func(ctx context.Context, in ports.CreateDepositInput) (*ports.DepositReceipt, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewDepositHandler(stub)

	c, _ := newTestContext(t, http.MethodPost, "/v1/deposits",
		`{"material":"Plastic","weight_kg":"2.5"}`)
	authenticate(c, "user_1", "user")

	err := h.Create(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 error, got %v", err)
	}
}

func TestDepositHandler_Create_GuardRejection(t *testing.T) {
	stub := &stubDepositService{
		createFn: func(ctx context.Context, in ports.CreateDepositInput) (*ports.DepositReceipt, error) {
			return nil, domain.ErrDuplicateSubmission
		},
	}
	h := NewDepositHandler(stub)

	c, _ := newTestContext(t, http.MethodPost, "/v1/deposits",
		`{"machine_id":"RVM-001","material":"Plastic","weight_kg":"2.5"}`)
	authenticate(c, "user_1", "user")

	err := h.Create(c)
	if !errors.Is(err, domain.ErrDuplicateSubmission) {
		t.Fatalf("expected ErrDuplicateSubmission, got %v", err)
	}
}

func TestDepositHandler_List_Defaults(t *testing.T) {
	stub := &stubDepositService{
		listFn: func(ctx context.Context, f ports.ListDepositsFilter) ([]*domain.Deposit, int64, error) {
			if f.UserID != "user_1" {
				t.Fatalf("unexpected user: %s", f.UserID)
			}
			return []*domain.Deposit{
				{
					TransactionID: "TXN-1",
					UserID:        "user_1",
					MachineID:     "RVM-001",
					MaterialName:  "Plastic",
					WeightKg:      decimal.RequireFromString("1.5"),
					PointsEarned:  decimal.RequireFromString("1.50"),
					CreatedAt:     time.Now().UTC(),
				},
			}, 1, nil
		},
	}
	h := NewDepositHandler(stub)

	c, rec := newTestContext(t, http.MethodGet, "/v1/deposits", "")
	authenticate(c, "user_1", "user")

	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	pag, ok := resp["pagination"].(map[string]any)
	if !ok {
		t.Fatalf("expected pagination in response")
	}
	if pag["page"] != float64(1) || pag["limit"] != float64(20) || pag["total"] != float64(1) {
		t.Fatalf("unexpected pagination: %+v", pag)
	}
	data, ok := resp["data"].([]any)
	if !ok || len(data) != 1 {
		t.Fatalf("expected one deposit, got %v", resp["data"])
	}
}

func TestDepositHandler_List_Filters(t *testing.T) {
	var captured ports.ListDepositsFilter
	stub := &stubDepositService{
		listFn: func(ctx context.Context, f ports.ListDepositsFilter) ([]*domain.Deposit, int64, error) {
			captured = f
			return nil, 0, nil
		},
	}
	h := NewDepositHandler(stub)

	c, _ := newTestContext(t, http.MethodGet,
		"/v1/deposits?material=Plastic&date_from=2026-08-01&date_to=2026-08-15&page=2&limit=10", "")
	authenticate(c, "user_1", "user")

	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if captured.Material != "Plastic" || captured.Page != 2 || captured.Limit != 10 {
		t.Fatalf("unexpected filter: %+v", captured)
	}
	if captured.DateFrom != time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected date_from: %s", captured.DateFrom)
	}
	// date_to expands to end of day
	if !captured.DateTo.After(time.Date(2026, 8, 15, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("unexpected date_to: %s", captured.DateTo)
	}
}

func TestDepositHandler_List_BadDate(t *testing.T) {
	stub := &stubDepositService{
		listFn: func(ctx context.Context, f ports.ListDepositsFilter) ([]*domain.Deposit, int64, error) {
			t.Fatalf("should not be called")
			return nil, 0, nil
		},
	}
	h := NewDepositHandler(stub)

	c, _ := newTestContext(t, http.MethodGet, "/v1/deposits?date_from=yesterday", "")
	authenticate(c, "user_1", "user")

	err := h.List(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 error, got %v", err)
	}
}
