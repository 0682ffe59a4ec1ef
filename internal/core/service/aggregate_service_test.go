package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dropme/rvm-backend/internal/core/domain"
)

// stubAggregateRepo exposes the aggregates map of a stubDepositRepo through
// the AggregateRepository port, so the aggregate service and the deposit
// service share one projection in tests.
type stubAggregateRepo struct {
	mu      sync.Mutex
	deposit *stubDepositRepo
	getErr  error
}

func newStubAggregateRepo(deposit *stubDepositRepo) *stubAggregateRepo {
	return &stubAggregateRepo{deposit: deposit}
}

func (r *stubAggregateRepo) Get(_ context.Context, userID string) (*domain.UserAggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.getErr != nil {
		return nil, r.getErr
	}
	agg, ok := r.deposit.aggregates[userID]
	if !ok {
		return &domain.UserAggregate{
			UserID:        userID,
			TotalPoints:   decimal.Zero,
			TotalWeightKg: decimal.Zero,
		}, nil
	}
	clone := *agg
	return &clone, nil
}

func (r *stubAggregateRepo) Replace(_ context.Context, agg *domain.UserAggregate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *agg
	r.deposit.aggregates[agg.UserID] = &clone
	return nil
}

type aggregateFixture struct {
	*depositFixture
	aggRepo *stubAggregateRepo
	aggSvc  *AggregateService
}

func newAggregateFixture() *aggregateFixture {
	cfg := testGuardConfig()
	cfg.DailyDepositLimit = 1000
	cfg.VelocityLimit = 1000
	cfg.MachineDailyCapacityKg = decimal.NewFromInt(100000)
	dep := newDepositFixture(cfg)
	aggRepo := newStubAggregateRepo(dep.repo)
	return &aggregateFixture{
		depositFixture: dep,
		aggRepo:        aggRepo,
		aggSvc:         NewAggregateService(aggRepo, dep.repo, discardLogger),
	}
}

func TestGetUserTotals_UnknownUserIsZero(t *testing.T) {
	f := newAggregateFixture()

	totals, err := f.aggSvc.GetUserTotals(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !totals.TotalPoints.IsZero() || !totals.TotalWeightKg.IsZero() {
		t.Fatalf("expected zero totals, got %+v", totals)
	}
}

func TestRebuild_MatchesIncremental(t *testing.T) {
	f := newAggregateFixture()
	ctx := context.Background()

	weights := []string{"0.5", "1.25", "2.333", "10", "0.001"}
	for _, w := range weights {
		in := depositInput("u1", w)
		in.MaterialName = "Aluminum"
		if _, err := f.svc.CreateDeposit(ctx, in); err != nil {
			t.Fatalf("deposit %s failed: %v", w, err)
		}
	}

	incremental, err := f.aggSvc.GetUserTotals(ctx, "u1")
	if err != nil {
		t.Fatalf("get totals failed: %v", err)
	}

	rebuilt, err := f.aggSvc.RebuildUserAggregate(ctx, "u1")
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}

	if !incremental.Equal(rebuilt) {
		t.Fatalf("incremental %+v != rebuilt %+v", incremental, rebuilt)
	}
}

func TestRebuild_Idempotent(t *testing.T) {
	f := newAggregateFixture()
	ctx := context.Background()

	for _, w := range []string{"3.3", "4.7"} {
		if _, err := f.svc.CreateDeposit(ctx, depositInput("u1", w)); err != nil {
			t.Fatalf("deposit failed: %v", err)
		}
	}

	first, err := f.aggSvc.RebuildUserAggregate(ctx, "u1")
	if err != nil {
		t.Fatalf("first rebuild failed: %v", err)
	}
	second, err := f.aggSvc.RebuildUserAggregate(ctx, "u1")
	if err != nil {
		t.Fatalf("second rebuild failed: %v", err)
	}
	if !first.Equal(second) {
		t.Fatalf("rebuild not idempotent: %+v vs %+v", first, second)
	}
}

func TestRebuild_EmptyLedgerZeroes(t *testing.T) {
	f := newAggregateFixture()

	totals, err := f.aggSvc.RebuildUserAggregate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if !totals.TotalPoints.IsZero() || !totals.TotalWeightKg.IsZero() {
		t.Fatalf("expected zero totals, got %+v", totals)
	}
}

func TestAudit_ConsistentProjection(t *testing.T) {
	f := newAggregateFixture()
	ctx := context.Background()

	if _, err := f.svc.CreateDeposit(ctx, depositInput("u1", "2.5")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	consistent, err := f.aggSvc.Audit(ctx, "u1")
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if !consistent {
		t.Fatalf("expected consistent projection")
	}
}

func TestAudit_DetectsAndRepairsDrift(t *testing.T) {
	f := newAggregateFixture()
	ctx := context.Background()

	if _, err := f.svc.CreateDeposit(ctx, depositInput("u1", "2.5")); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	// Corrupt the projection behind the ledger's back.
	f.repo.mu.Lock()
	f.repo.aggregates["u1"].TotalPoints = decimal.NewFromInt(999)
	f.repo.mu.Unlock()

	consistent, err := f.aggSvc.Audit(ctx, "u1")
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if consistent {
		t.Fatalf("expected drift to be detected")
	}

	// The audit repaired the projection in place.
	repaired, err := f.aggSvc.GetUserTotals(ctx, "u1")
	if err != nil {
		t.Fatalf("get totals failed: %v", err)
	}
	summed, _ := f.repo.SumByUser(ctx, "u1")
	if !repaired.Equal(summed) {
		t.Fatalf("projection not repaired: %+v vs %+v", repaired, summed)
	}

	if consistent, err = f.aggSvc.Audit(ctx, "u1"); err != nil || !consistent {
		t.Fatalf("expected consistency after repair, got %v / %v", consistent, err)
	}
}

func TestUserSummary(t *testing.T) {
	f := newAggregateFixture()
	ctx := context.Background()

	in := depositInput("u1", "2.0") // Plastic, 2.00 points
	if _, err := f.svc.CreateDeposit(ctx, in); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	in = depositInput("u1", "1.5")
	in.MaterialName = "Aluminum" // 4.50 points
	if _, err := f.svc.CreateDeposit(ctx, in); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	// An old deposit outside the 30-day window.
	f.seedDeposit("u1", "7", time.Now().UTC().Add(-40*24*time.Hour))

	summary, err := f.aggSvc.UserSummary(ctx, "u1")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}

	if !summary.Totals.TotalWeightKg.Equal(decimal.RequireFromString("10.5")) {
		t.Fatalf("lifetime weight = %s, want 10.5", summary.Totals.TotalWeightKg)
	}
	if summary.MonthlyStats.Deposits != 2 {
		t.Fatalf("monthly deposits = %d, want 2", summary.MonthlyStats.Deposits)
	}
	if !summary.MonthlyStats.WeightKg.Equal(decimal.RequireFromString("3.5")) {
		t.Fatalf("monthly weight = %s, want 3.5", summary.MonthlyStats.WeightKg)
	}
	if len(summary.MaterialBreakdown) != 2 {
		t.Fatalf("breakdown has %d materials, want 2", len(summary.MaterialBreakdown))
	}
}
