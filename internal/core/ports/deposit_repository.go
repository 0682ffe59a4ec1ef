package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dropme/rvm-backend/internal/core/domain"
)

// ListDepositsFilter carries all query parameters for listing a user's
// deposit history.
type ListDepositsFilter struct {
	UserID   string
	Material string    // optional: case-insensitive match on material name
	DateFrom time.Time // optional: deposit_time >= DateFrom
	DateTo   time.Time // optional: deposit_time <= DateTo
	Page     int       // 1-based
	Limit    int       // max rows per page (capped at 100 by service)
}

// PeriodStats summarises a user's activity over a time window.
type PeriodStats struct {
	Points   decimal.Decimal `json:"points_earned"`
	WeightKg decimal.Decimal `json:"weight_recycled"`
	Deposits int64           `json:"deposits_made"`
}

// MaterialStat is one row of a per-material breakdown.
type MaterialStat struct {
	Material      string          `json:"material"`
	TotalWeightKg decimal.Decimal `json:"total_weight_kg"`
	TotalPoints   decimal.Decimal `json:"total_points"`
	DepositCount  int64           `json:"deposit_count"`
}

// MachineStat is one row of a per-machine breakdown.
type MachineStat struct {
	MachineID     string          `json:"machine_id"`
	Location      string          `json:"location"`
	DepositCount  int64           `json:"deposit_count"`
	TotalWeightKg decimal.Decimal `json:"total_weight_kg"`
}

// SystemStats is the system-wide view served to administrators.
type SystemStats struct {
	TotalWeightKg      decimal.Decimal `json:"total_weight_recycled"`
	TotalPoints        decimal.Decimal `json:"total_points_awarded"`
	TotalDeposits      int64           `json:"total_deposits"`
	AvgDepositWeightKg decimal.Decimal `json:"average_deposit_weight"`
	TopMaterials       []MaterialStat  `json:"top_materials"`
	TopMachines        []MachineStat   `json:"top_machines"`
}

// DepositRepository defines persistence operations for the deposit ledger
// and the queries derived from it. The ledger is append-only: there are no
// update or delete operations.
type DepositRepository interface {
	// CreateWithAggregate atomically persists the ledger entry and applies
	// its weight/points to the user's aggregate (creating it with zeros
	// first when absent), then returns the refreshed aggregate. Either both
	// writes become visible or neither does.
	CreateWithAggregate(ctx context.Context, d *domain.Deposit) (*domain.UserAggregate, error)
	// CountByUserSince counts the user's accepted deposits with
	// deposit_time >= since.
	CountByUserSince(ctx context.Context, userID string, since time.Time) (int64, error)
	// SumByUser recomputes the user's totals from scratch over the whole
	// ledger. This is the correctness oracle for the aggregate projection.
	SumByUser(ctx context.Context, userID string) (domain.Totals, error)
	// ListByUser returns a page of the user's deposits (newest first) and
	// the total count matching the filter.
	ListByUser(ctx context.Context, f ListDepositsFilter) ([]*domain.Deposit, int64, error)
	StatsByUserSince(ctx context.Context, userID string, since time.Time) (PeriodStats, error)
	MaterialBreakdown(ctx context.Context, userID string) ([]MaterialStat, error)
	// ActiveUserIDsSince lists distinct users with at least one deposit
	// since the given time. Used by the reconciliation audit.
	ActiveUserIDsSince(ctx context.Context, since time.Time) ([]string, error)
	SystemStats(ctx context.Context) (*SystemStats, error)
}

// AggregateRepository defines persistence for the materialized per-user
// totals. The projection is created lazily: Get returns a zero-valued
// aggregate when the user has none yet.
type AggregateRepository interface {
	Get(ctx context.Context, userID string) (*domain.UserAggregate, error)
	// Replace overwrites the user's aggregate with the given totals,
	// creating the document when absent. Used by the full rebuild.
	Replace(ctx context.Context, agg *domain.UserAggregate) error
}
