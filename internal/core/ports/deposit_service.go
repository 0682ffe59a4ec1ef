package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dropme/rvm-backend/internal/core/domain"
)

// CreateDepositInput carries all data needed to record a deposit. UserID is
// the already-authenticated identity injected by the auth middleware; the
// core performs no credential checks of its own.
type CreateDepositInput struct {
	UserID       string
	MachineID    string
	MaterialName string
	WeightKg     decimal.Decimal
	Notes        string
}

// DepositReceipt is returned on a successful deposit: the frozen ledger
// entry plus the user's refreshed running totals.
type DepositReceipt struct {
	Deposit         domain.Deposit
	MachineLocation string
	Totals          domain.Totals
}

// DepositService is the write side of the ledger.
type DepositService interface {
	CreateDeposit(ctx context.Context, in CreateDepositInput) (*DepositReceipt, error)
	ListDeposits(ctx context.Context, f ListDepositsFilter) ([]*domain.Deposit, int64, error)
	SystemStats(ctx context.Context) (*SystemStats, error)
}

// UserSummary is the per-user view combining lifetime totals with recent
// activity.
type UserSummary struct {
	Totals            domain.Totals  `json:"totals"`
	MonthlyStats      PeriodStats    `json:"monthly_stats"`
	MaterialBreakdown []MaterialStat `json:"material_breakdown"`
	GeneratedAt       time.Time      `json:"generated_at"`
}

// AggregateService exposes the materialized totals and their maintenance
// operations.
type AggregateService interface {
	GetUserTotals(ctx context.Context, userID string) (domain.Totals, error)
	// RebuildUserAggregate recomputes the user's totals from the ledger and
	// overwrites the projection. Idempotent; safe to re-run at any time.
	RebuildUserAggregate(ctx context.Context, userID string) (domain.Totals, error)
	// Audit compares the stored projection with a fresh rebuild sum. On
	// drift it repairs the projection and reports consistent=false.
	Audit(ctx context.Context, userID string) (consistent bool, err error)
	UserSummary(ctx context.Context, userID string) (*UserSummary, error)
}

// CatalogService serves the reference catalog.
type CatalogService interface {
	LookupMaterial(ctx context.Context, name string) (*domain.Material, error)
	LookupMachine(ctx context.Context, machineID string) (*domain.Machine, error)
	ListMaterials(ctx context.Context) ([]*domain.Material, error)
	ListMachines(ctx context.Context) ([]*domain.Machine, error)
}
