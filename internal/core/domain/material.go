package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrMaterialNotFound = errors.New("material not found")

// Material is a recyclable material type and its reward rate.
// PointsPerKg is fixed per ledger entry at deposit time: changing a rate
// never rewrites points already earned.
type Material struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	PointsPerKg decimal.Decimal `json:"points_per_kg"`
	Description string          `json:"description,omitempty"`
	Active      bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
