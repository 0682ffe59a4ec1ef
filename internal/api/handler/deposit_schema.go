package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dropme/rvm-backend/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

// createDepositRequest is what a machine (or its gateway) submits when a
// user drops off material. WeightKg accepts both a JSON number and a quoted
// decimal string; quoting is preferred so nothing is lost to float parsing.
type createDepositRequest struct {
	MachineID string          `json:"machine_id" validate:"required"`
	Material  string          `json:"material"   validate:"required"`
	WeightKg  decimal.Decimal `json:"weight_kg"`
	Notes     string          `json:"notes,omitempty" validate:"max=500"`
}

type totalsResponse struct {
	TotalPoints   decimal.Decimal `json:"total_points"`
	TotalWeightKg decimal.Decimal `json:"total_weight_kg"`
}

type depositResponse struct {
	TransactionID string          `json:"transaction_id"`
	UserID        string          `json:"user_id"`
	MachineID     string          `json:"machine_id"`
	Material      string          `json:"material"`
	WeightKg      decimal.Decimal `json:"weight_kg"`
	PointsEarned  decimal.Decimal `json:"points_earned"`
	Notes         string          `json:"notes,omitempty"`
	DepositTime   time.Time       `json:"deposit_time"`
}

type createDepositResponse struct {
	Deposit         depositResponse `json:"deposit"`
	MachineLocation string          `json:"machine_location"`
	Totals          totalsResponse  `json:"totals"`
}

type paginationResponse struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

type listDepositsResponse struct {
	Data       []depositResponse  `json:"data"`
	Pagination paginationResponse `json:"pagination"`
}

func toDepositResponse(d *domain.Deposit) depositResponse {
	return depositResponse{
		TransactionID: d.TransactionID,
		UserID:        d.UserID,
		MachineID:     d.MachineID,
		Material:      d.MaterialName,
		WeightKg:      d.WeightKg,
		PointsEarned:  d.PointsEarned,
		Notes:         d.Notes,
		DepositTime:   d.CreatedAt,
	}
}

func toTotalsResponse(t domain.Totals) totalsResponse {
	return totalsResponse{
		TotalPoints:   t.TotalPoints,
		TotalWeightKg: t.TotalWeightKg,
	}
}
