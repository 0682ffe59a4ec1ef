package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dropme/rvm-backend/internal/core/ports"
)

// AccountHandler serves the authenticated user's own totals and summary.
type AccountHandler struct {
	aggregates ports.AggregateService
}

func NewAccountHandler(aggregates ports.AggregateService) *AccountHandler {
	return &AccountHandler{aggregates: aggregates}
}

// Totals handles GET /v1/account/totals.
//
// @Summary      Get the caller's lifetime totals
// @Tags         account
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  totalsResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/account/totals [get]
func (h *AccountHandler) Totals(c echo.Context) error {
	userID, _, err := ctxUser(c)
	if err != nil {
		return err
	}

	totals, err := h.aggregates.GetUserTotals(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTotalsResponse(totals))
}

// Summary handles GET /v1/account/summary.
//
// @Summary      Get the caller's recycling summary
// @Tags         account
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ports.UserSummary
// @Failure      401  {object}  errorResponse
// @Router       /v1/account/summary [get]
func (h *AccountHandler) Summary(c echo.Context) error {
	userID, _, err := ctxUser(c)
	if err != nil {
		return err
	}

	summary, err := h.aggregates.UserSummary(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}
