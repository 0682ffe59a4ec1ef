package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dropme/rvm-backend/internal/core/ports"
)

// AdminHandler serves system-wide statistics and projection maintenance.
// All routes are mounted behind the admin RBAC middleware.
type AdminHandler struct {
	deposits   ports.DepositService
	aggregates ports.AggregateService
}

func NewAdminHandler(deposits ports.DepositService, aggregates ports.AggregateService) *AdminHandler {
	return &AdminHandler{deposits: deposits, aggregates: aggregates}
}

// Stats handles GET /v1/admin/stats.
//
// @Summary      System-wide recycling statistics
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ports.SystemStats
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/admin/stats [get]
func (h *AdminHandler) Stats(c echo.Context) error {
	stats, err := h.deposits.SystemStats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

type rebuildResponse struct {
	UserID string         `json:"user_id"`
	Totals totalsResponse `json:"totals"`
}

// RebuildAggregate handles POST /v1/admin/users/:user_id/rebuild.
//
// Recomputes the user's totals from the full ledger and overwrites the
// stored projection. Idempotent.
//
// @Summary      Rebuild a user's aggregate projection from the ledger
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  path      string  true  "User ID"
// @Success      200      {object}  rebuildResponse
// @Failure      401      {object}  errorResponse
// @Failure      403      {object}  errorResponse
// @Router       /v1/admin/users/{user_id}/rebuild [post]
func (h *AdminHandler) RebuildAggregate(c echo.Context) error {
	userID := c.Param("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	totals, err := h.aggregates.RebuildUserAggregate(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rebuildResponse{
		UserID: userID,
		Totals: toTotalsResponse(totals),
	})
}
