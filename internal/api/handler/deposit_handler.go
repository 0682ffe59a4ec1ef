package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dropme/rvm-backend/internal/api/metrics"
	"github.com/dropme/rvm-backend/internal/core/domain"
	"github.com/dropme/rvm-backend/internal/core/ports"
)

// DepositHandler handles HTTP requests for the deposit ledger.
type DepositHandler struct {
	service ports.DepositService
}

func NewDepositHandler(service ports.DepositService) *DepositHandler {
	return &DepositHandler{service: service}
}

// Create handles POST /v1/deposits.
//
// @Summary      Record a recycling deposit
// @Tags         deposits
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createDepositRequest  true  "Deposit details"
// @Success      201   {object}  createDepositResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /v1/deposits [post]
func (h *DepositHandler) Create(c echo.Context) error {
	var req createDepositRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	userID, _, err := ctxUser(c)
	if err != nil {
		return err
	}

	receipt, err := h.service.CreateDeposit(c.Request().Context(), ports.CreateDepositInput{
		UserID:       userID,
		MachineID:    req.MachineID,
		MaterialName: req.Material,
		WeightKg:     req.WeightKg,
		Notes:        req.Notes,
	})
	if err != nil {
		metrics.DepositsRejectedTotal.WithLabelValues(rejectionReason(err)).Inc()
		return err
	}

	metrics.DepositsCreatedTotal.WithLabelValues(receipt.Deposit.MaterialName).Inc()
	metrics.DepositWeightKg.Observe(receipt.Deposit.WeightKg.InexactFloat64())

	return c.JSON(http.StatusCreated, createDepositResponse{
		Deposit:         toDepositResponse(&receipt.Deposit),
		MachineLocation: receipt.MachineLocation,
		Totals:          toTotalsResponse(receipt.Totals),
	})
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidWeight):
		return "invalid_weight"
	case errors.Is(err, domain.ErrDuplicateSubmission):
		return "duplicate"
	case errors.Is(err, domain.ErrDailyLimitExceeded):
		return "daily_limit"
	case errors.Is(err, domain.ErrVelocityLimitExceeded):
		return "velocity_limit"
	case errors.Is(err, domain.ErrMachineCapacityExceeded):
		return "machine_capacity"
	case errors.Is(err, domain.ErrMaterialNotFound):
		return "unknown_material"
	case errors.Is(err, domain.ErrMachineNotFound):
		return "unknown_machine"
	default:
		return "error"
	}
}

// List handles GET /v1/deposits.
//
// @Summary      List the caller's deposit history
// @Tags         deposits
// @Produce      json
// @Security     BearerAuth
// @Param        page       query     int     false  "Page number (1-based)"
// @Param        limit      query     int     false  "Rows per page (max 100)"
// @Param        material   query     string  false  "Filter by material name"
// @Param        date_from  query     string  false  "Filter: deposits on or after (RFC3339 or YYYY-MM-DD)"
// @Param        date_to    query     string  false  "Filter: deposits on or before (RFC3339 or YYYY-MM-DD)"
// @Success      200        {object}  listDepositsResponse
// @Failure      400        {object}  errorResponse
// @Failure      401        {object}  errorResponse
// @Router       /v1/deposits [get]
func (h *DepositHandler) List(c echo.Context) error {
	userID, _, err := ctxUser(c)
	if err != nil {
		return err
	}

	filter := ports.ListDepositsFilter{
		UserID:   userID,
		Material: c.QueryParam("material"),
	}
	filter.Page, _ = strconv.Atoi(c.QueryParam("page"))
	filter.Limit, _ = strconv.Atoi(c.QueryParam("limit"))

	if filter.DateFrom, err = parseQueryTime(c.QueryParam("date_from"), false); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date_from")
	}
	if filter.DateTo, err = parseQueryTime(c.QueryParam("date_to"), true); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date_to")
	}

	deposits, total, err := h.service.ListDeposits(c.Request().Context(), filter)
	if err != nil {
		return err
	}

	data := make([]depositResponse, 0, len(deposits))
	for _, d := range deposits {
		data = append(data, toDepositResponse(d))
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return c.JSON(http.StatusOK, listDepositsResponse{
		Data: data,
		Pagination: paginationResponse{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
	})
}

// parseQueryTime accepts RFC3339 timestamps or bare dates. A bare date in
// date_to means "through the end of that day", so it expands to 23:59:59.
func parseQueryTime(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
