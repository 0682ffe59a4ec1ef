package service

import (
	"context"

	"github.com/dropme/rvm-backend/internal/core/domain"
	"github.com/dropme/rvm-backend/internal/core/ports"
)

// CatalogService serves the read-mostly reference catalog. Lookups are
// case-insensitive and restricted to active records; a miss is always a
// client-input error, never a server fault.
type CatalogService struct {
	repo ports.CatalogRepository
}

func NewCatalogService(repo ports.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

func (s *CatalogService) LookupMaterial(ctx context.Context, name string) (*domain.Material, error) {
	return s.repo.FindMaterialByName(ctx, name)
}

func (s *CatalogService) LookupMachine(ctx context.Context, machineID string) (*domain.Machine, error) {
	return s.repo.FindMachineByID(ctx, machineID)
}

func (s *CatalogService) ListMaterials(ctx context.Context) ([]*domain.Material, error) {
	return s.repo.ListMaterials(ctx)
}

func (s *CatalogService) ListMachines(ctx context.Context) ([]*domain.Machine, error) {
	return s.repo.ListMachines(ctx)
}
