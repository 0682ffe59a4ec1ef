package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dropme/rvm-backend/internal/core/domain"
	"github.com/dropme/rvm-backend/internal/core/ports"
)

// GuardConfig holds the policy ceilings enforced before any ledger write.
type GuardConfig struct {
	// MaxDepositWeightKg is the per-deposit weight ceiling (inclusive).
	MaxDepositWeightKg decimal.Decimal
	// DedupWindow is how long an accepted fingerprint blocks identical
	// resubmissions.
	DedupWindow time.Duration
	// DailyDepositLimit is the max accepted deposits per user per UTC day.
	DailyDepositLimit int64
	// VelocityLimit is the max accepted deposits per user inside
	// VelocityWindow.
	VelocityLimit  int64
	VelocityWindow time.Duration
	// MachineDailyCapacityKg is the max accumulated weight a machine
	// accepts per UTC day.
	MachineDailyCapacityKg decimal.Decimal
}

// DepositCounter is the slice of the ledger the guard reads: counts of a
// user's accepted deposits since a point in time.
type DepositCounter interface {
	CountByUserSince(ctx context.Context, userID string, since time.Time) (int64, error)
}

// GuardInput identifies one deposit attempt. Material and machine names are
// compared case-insensitively when building the fingerprint.
type GuardInput struct {
	UserID       string
	MachineID    string
	MaterialName string
	WeightKg     decimal.Decimal
}

// DepositGuard evaluates every policy gate for a deposit attempt before it
// touches the ledger. Dedup fingerprints and the per-machine capacity
// counter live in the ephemeral store; the per-user daily and velocity
// counts are derived from the ledger itself so they survive a cache
// restart. A store failure degrades to accepting the deposit (with a
// warning) rather than blocking users on cache outages.
type DepositGuard struct {
	store  ports.GuardStore
	ledger DepositCounter
	cfg    GuardConfig
	log    zerolog.Logger
}

func NewDepositGuard(store ports.GuardStore, ledger DepositCounter, cfg GuardConfig, log zerolog.Logger) *DepositGuard {
	return &DepositGuard{store: store, ledger: ledger, cfg: cfg, log: log}
}

// Check runs all gates in order and returns the first policy error tripped:
// weight bound, duplicate fingerprint, daily limit, velocity limit, machine
// capacity. A nil return means the deposit may be written; the machine
// capacity counter has then already been reserved for it.
func (g *DepositGuard) Check(ctx context.Context, in GuardInput) error {
	if err := g.checkWeight(in.WeightKg); err != nil {
		return err
	}
	if err := g.checkFingerprint(ctx, in); err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := g.checkUserLimits(ctx, in.UserID, now); err != nil {
		return err
	}
	return g.reserveMachineCapacity(ctx, in, now)
}

func (g *DepositGuard) checkWeight(w decimal.Decimal) error {
	if w.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: weight must be greater than 0", domain.ErrInvalidWeight)
	}
	if w.GreaterThan(g.cfg.MaxDepositWeightKg) {
		return fmt.Errorf("%w: weight exceeds maximum of %s kg per deposit", domain.ErrInvalidWeight, g.cfg.MaxDepositWeightKg)
	}
	return nil
}

func (g *DepositGuard) checkFingerprint(ctx context.Context, in GuardInput) error {
	key := fingerprintKey(in)
	fresh, err := g.store.MarkFingerprint(ctx, key, g.cfg.DedupWindow)
	if err != nil {
		g.log.Warn().Err(err).Str("user_id", in.UserID).Msg("fingerprint check failed, allowing deposit")
		return nil
	}
	if !fresh {
		return domain.ErrDuplicateSubmission
	}
	return nil
}

func (g *DepositGuard) checkUserLimits(ctx context.Context, userID string, now time.Time) error {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	daily, err := g.ledger.CountByUserSince(ctx, userID, dayStart)
	if err != nil {
		return fmt.Errorf("guard: daily count: %w", err)
	}
	if daily >= g.cfg.DailyDepositLimit {
		return domain.ErrDailyLimitExceeded
	}

	recent, err := g.ledger.CountByUserSince(ctx, userID, now.Add(-g.cfg.VelocityWindow))
	if err != nil {
		return fmt.Errorf("guard: velocity count: %w", err)
	}
	if recent > g.cfg.VelocityLimit {
		return domain.ErrVelocityLimitExceeded
	}
	return nil
}

func (g *DepositGuard) reserveMachineCapacity(ctx context.Context, in GuardInput, now time.Time) error {
	key := machineDayKey(in.MachineID, now)
	ok, err := g.store.ReserveMachineWeight(ctx, key, in.WeightKg, g.cfg.MachineDailyCapacityKg, machineDayTTL)
	if err != nil {
		g.log.Warn().Err(err).Str("machine_id", in.MachineID).Msg("capacity check failed, allowing deposit")
		return nil
	}
	if !ok {
		return domain.ErrMachineCapacityExceeded
	}
	return nil
}

// machineDayTTL keeps the counter comfortably past UTC midnight; the date
// suffix in the key is what actually resets the counter at the day boundary.
const machineDayTTL = 48 * time.Hour

func fingerprintKey(in GuardInput) string {
	return fmt.Sprintf("deposit:fp:%s:%s:%s:%s",
		in.UserID,
		in.WeightKg.String(),
		strings.ToLower(in.MaterialName),
		strings.ToLower(in.MachineID),
	)
}

func machineDayKey(machineID string, now time.Time) string {
	return fmt.Sprintf("machine:daily_weight:%s:%s", strings.ToLower(machineID), now.Format("2006-01-02"))
}
