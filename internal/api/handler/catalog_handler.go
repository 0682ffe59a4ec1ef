package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dropme/rvm-backend/internal/core/ports"
)

// CatalogHandler serves the material and machine reference catalog.
type CatalogHandler struct {
	catalog ports.CatalogService
}

func NewCatalogHandler(catalog ports.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListMaterials handles GET /v1/materials.
//
// @Summary      List accepted materials and their reward rates
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Material
// @Failure      401  {object}  errorResponse
// @Router       /v1/materials [get]
func (h *CatalogHandler) ListMaterials(c echo.Context) error {
	materials, err := h.catalog.ListMaterials(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, materials)
}

// ListMachines handles GET /v1/machines.
//
// @Summary      List active vending machines
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Machine
// @Failure      401  {object}  errorResponse
// @Router       /v1/machines [get]
func (h *CatalogHandler) ListMachines(c echo.Context) error {
	machines, err := h.catalog.ListMachines(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, machines)
}
