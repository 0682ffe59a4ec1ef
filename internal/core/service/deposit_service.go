package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dropme/rvm-backend/internal/core/domain"
	"github.com/dropme/rvm-backend/internal/core/ports"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type DepositService struct {
	deposits ports.DepositRepository
	catalog  ports.CatalogRepository
	guard    *DepositGuard
	logger   zerolog.Logger
}

func NewDepositService(
	deposits ports.DepositRepository,
	catalog ports.CatalogRepository,
	guard *DepositGuard,
	logger zerolog.Logger,
) *DepositService {
	return &DepositService{deposits: deposits, catalog: catalog, guard: guard, logger: logger}
}

// CreateDeposit turns a raw submission into a durable ledger entry and a
// consistently updated aggregate:
//
//  1. Resolve machine and material against the reference catalog.
//  2. Run every fraud/capacity gate.
//  3. Freeze points_earned = round(weight * rate, 2).
//  4. Persist the entry and the aggregate increment in one atomic unit.
//
// A failed step leaves no trace in the ledger or the aggregate.
func (s *DepositService) CreateDeposit(ctx context.Context, in ports.CreateDepositInput) (*ports.DepositReceipt, error) {
	material, err := s.catalog.FindMaterialByName(ctx, in.MaterialName)
	if err != nil {
		return nil, fmt.Errorf("create deposit: %w", err)
	}
	machine, err := s.catalog.FindMachineByID(ctx, in.MachineID)
	if err != nil {
		return nil, fmt.Errorf("create deposit: %w", err)
	}

	if err := s.guard.Check(ctx, GuardInput{
		UserID:       in.UserID,
		MachineID:    machine.MachineID,
		MaterialName: material.Name,
		WeightKg:     in.WeightKg,
	}); err != nil {
		return nil, err
	}

	deposit := &domain.Deposit{
		TransactionID: generateTransactionID(),
		UserID:        in.UserID,
		MachineID:     machine.MachineID,
		MaterialName:  material.Name,
		WeightKg:      in.WeightKg,
		PointsEarned:  domain.RewardPoints(in.WeightKg, material.PointsPerKg),
		Notes:         in.Notes,
		CreatedAt:     time.Now().UTC(),
	}

	agg, err := s.deposits.CreateWithAggregate(ctx, deposit)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", in.UserID).Msg("failed to persist deposit")
		return nil, fmt.Errorf("create deposit: %w", err)
	}

	s.logger.Info().
		Str("transaction_id", deposit.TransactionID).
		Str("user_id", deposit.UserID).
		Str("machine_id", deposit.MachineID).
		Str("material", deposit.MaterialName).
		Str("points_earned", deposit.PointsEarned.String()).
		Msg("deposit recorded")

	return &ports.DepositReceipt{
		Deposit:         *deposit,
		MachineLocation: machine.Location,
		Totals:          agg.Totals(),
	}, nil
}

// ListDeposits returns a page of the user's deposit history.
func (s *DepositService) ListDeposits(ctx context.Context, f ports.ListDepositsFilter) ([]*domain.Deposit, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	return s.deposits.ListByUser(ctx, f)
}

// SystemStats returns the system-wide ledger view for administrators.
func (s *DepositService) SystemStats(ctx context.Context) (*ports.SystemStats, error) {
	return s.deposits.SystemStats(ctx)
}

// generateTransactionID returns a unique deposit identifier in the format
// TXN-<32 uppercase hex chars>, backed by a random UUIDv4.
func generateTransactionID() string {
	u := uuid.New()
	return "TXN-" + strings.ToUpper(hex.EncodeToString(u[:]))
}
