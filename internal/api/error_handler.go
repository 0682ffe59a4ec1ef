package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dropme/rvm-backend/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrInvalidWeight):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrMaterialNotFound):
		return http.StatusUnprocessableEntity, "unknown or inactive material"
	case errors.Is(err, domain.ErrMachineNotFound):
		return http.StatusUnprocessableEntity, "unknown or inactive machine"
	case errors.Is(err, domain.ErrDuplicateSubmission):
		return http.StatusConflict, "duplicate submission"
	case errors.Is(err, domain.ErrDailyLimitExceeded):
		return http.StatusTooManyRequests, "daily deposit limit reached"
	case errors.Is(err, domain.ErrVelocityLimitExceeded):
		return http.StatusTooManyRequests, "too many deposits in a short period"
	case errors.Is(err, domain.ErrMachineCapacityExceeded):
		return http.StatusTooManyRequests, "machine daily capacity reached"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, "user already exists"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
