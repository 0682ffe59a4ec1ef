package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Guard and ledger errors. All are client-facing and non-fatal; the HTTP
// layer maps each to a deterministic status code.
var (
	ErrInvalidWeight           = errors.New("invalid deposit weight")
	ErrDuplicateSubmission     = errors.New("duplicate deposit detected")
	ErrDailyLimitExceeded      = errors.New("daily deposit limit exceeded")
	ErrVelocityLimitExceeded   = errors.New("too many deposits in short time period")
	ErrMachineCapacityExceeded = errors.New("machine capacity exceeded for today")
)

// ErrAggregateInconsistency signals that a user's incrementally maintained
// totals no longer match a full rebuild from the ledger. It is a bug signal
// raised by the consistency audit, never returned to API callers.
var ErrAggregateInconsistency = errors.New("user aggregate inconsistent with ledger")

// Deposit is one accepted recycling submission, the append-only unit of
// truth for points awarded. PointsEarned is frozen at creation: it always
// equals WeightKg times the material's rate at the moment of acceptance and
// is never recomputed from a later rate.
type Deposit struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	UserID        string          `json:"user_id"`
	MachineID     string          `json:"machine_id"`
	MaterialName  string          `json:"material"`
	WeightKg      decimal.Decimal `json:"weight_kg"`
	PointsEarned  decimal.Decimal `json:"points_earned"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"deposit_time"`
}

// Totals is a user's running point and weight balance.
type Totals struct {
	TotalPoints   decimal.Decimal `json:"total_points"`
	TotalWeightKg decimal.Decimal `json:"total_weight_kg"`
}

// Add returns t with a single deposit's weight and points applied.
func (t Totals) Add(weightKg, points decimal.Decimal) Totals {
	return Totals{
		TotalPoints:   t.TotalPoints.Add(points),
		TotalWeightKg: t.TotalWeightKg.Add(weightKg),
	}
}

// Equal reports whether both totals match exactly (decimal comparison,
// 2.5 == 2.50).
func (t Totals) Equal(o Totals) bool {
	return t.TotalPoints.Equal(o.TotalPoints) && t.TotalWeightKg.Equal(o.TotalWeightKg)
}

// UserAggregate is the materialized projection of a user's ledger entries.
// It is rebuildable: summing every deposit for the user must reproduce it
// exactly.
type UserAggregate struct {
	UserID        string          `json:"user_id"`
	TotalPoints   decimal.Decimal `json:"total_points"`
	TotalWeightKg decimal.Decimal `json:"total_weight_kg"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Totals returns the aggregate's balances as a Totals value.
func (a *UserAggregate) Totals() Totals {
	if a == nil {
		return Totals{TotalPoints: decimal.Zero, TotalWeightKg: decimal.Zero}
	}
	return Totals{TotalPoints: a.TotalPoints, TotalWeightKg: a.TotalWeightKg}
}

// RewardPoints computes the points earned for a deposit: weight multiplied by
// the material's rate, rounded half-up to two decimal places.
func RewardPoints(weightKg, pointsPerKg decimal.Decimal) decimal.Decimal {
	return weightKg.Mul(pointsPerKg).Round(2)
}
