package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dropme/rvm-backend/internal/core/domain"
	"github.com/dropme/rvm-backend/internal/core/ports"
)

const summaryWindow = 30 * 24 * time.Hour

// AggregateService maintains and serves the per-user materialized totals.
// The projection is incrementally updated by the deposit write path; this
// service owns the read side plus the rebuild and audit paths.
type AggregateService struct {
	aggregates ports.AggregateRepository
	deposits   ports.DepositRepository
	logger     zerolog.Logger
}

func NewAggregateService(
	aggregates ports.AggregateRepository,
	deposits ports.DepositRepository,
	logger zerolog.Logger,
) *AggregateService {
	return &AggregateService{aggregates: aggregates, deposits: deposits, logger: logger}
}

// GetUserTotals returns the user's current running totals. Users without a
// projection yet get zeros.
func (s *AggregateService) GetUserTotals(ctx context.Context, userID string) (domain.Totals, error) {
	agg, err := s.aggregates.Get(ctx, userID)
	if err != nil {
		return domain.Totals{}, fmt.Errorf("get totals: %w", err)
	}
	return agg.Totals(), nil
}

// RebuildUserAggregate recomputes the user's totals by summing every ledger
// entry from scratch and overwrites the projection with the result. It is
// idempotent and may be re-run at any time; for an unchanged ledger two runs
// produce identical totals.
func (s *AggregateService) RebuildUserAggregate(ctx context.Context, userID string) (domain.Totals, error) {
	totals, err := s.deposits.SumByUser(ctx, userID)
	if err != nil {
		return domain.Totals{}, fmt.Errorf("rebuild aggregate: %w", err)
	}

	agg := &domain.UserAggregate{
		UserID:        userID,
		TotalPoints:   totals.TotalPoints,
		TotalWeightKg: totals.TotalWeightKg,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := s.aggregates.Replace(ctx, agg); err != nil {
		return domain.Totals{}, fmt.Errorf("rebuild aggregate: %w", err)
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("total_points", totals.TotalPoints.String()).
		Str("total_weight_kg", totals.TotalWeightKg.String()).
		Msg("aggregate rebuilt")

	return totals, nil
}

// Audit verifies that the stored projection matches a fresh ledger sum. On
// drift it logs the inconsistency, repairs the projection in place, and
// reports consistent=false. Drift is a bug signal, not a user error.
func (s *AggregateService) Audit(ctx context.Context, userID string) (bool, error) {
	stored, err := s.aggregates.Get(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("audit aggregate: %w", err)
	}
	summed, err := s.deposits.SumByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("audit aggregate: %w", err)
	}

	if stored.Totals().Equal(summed) {
		return true, nil
	}

	s.logger.Error().
		Str("user_id", userID).
		Str("stored_points", stored.Totals().TotalPoints.String()).
		Str("ledger_points", summed.TotalPoints.String()).
		Str("stored_weight_kg", stored.Totals().TotalWeightKg.String()).
		Str("ledger_weight_kg", summed.TotalWeightKg.String()).
		Err(domain.ErrAggregateInconsistency).
		Msg("aggregate drift detected, repairing")

	if _, err := s.RebuildUserAggregate(ctx, userID); err != nil {
		return false, err
	}
	return false, nil
}

// UserSummary combines lifetime totals with trailing-30-day stats and a
// per-material breakdown.
func (s *AggregateService) UserSummary(ctx context.Context, userID string) (*ports.UserSummary, error) {
	totals, err := s.GetUserTotals(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	monthly, err := s.deposits.StatsByUserSince(ctx, userID, now.Add(-summaryWindow))
	if err != nil {
		return nil, fmt.Errorf("user summary: %w", err)
	}
	breakdown, err := s.deposits.MaterialBreakdown(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user summary: %w", err)
	}

	return &ports.UserSummary{
		Totals:            totals,
		MonthlyStats:      monthly,
		MaterialBreakdown: breakdown,
		GeneratedAt:       now,
	}, nil
}
