package ports

import (
	"context"

	"github.com/dropme/rvm-backend/internal/core/domain"
)

// CatalogRepository defines persistence operations over the reference
// catalog (materials and machines). Lookups are read-only, case-insensitive
// on the name/id, and restricted to active records.
type CatalogRepository interface {
	// FindMaterialByName resolves an active material by name.
	// Returns domain.ErrMaterialNotFound when the name does not match an
	// active material.
	FindMaterialByName(ctx context.Context, name string) (*domain.Material, error)
	// FindMachineByID resolves an active machine by its machine_id.
	// Returns domain.ErrMachineNotFound when the id does not match an
	// active machine.
	FindMachineByID(ctx context.Context, machineID string) (*domain.Machine, error)
	ListMaterials(ctx context.Context) ([]*domain.Material, error)
	ListMachines(ctx context.Context) ([]*domain.Machine, error)
}
