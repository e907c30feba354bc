package http

import (
	"log/slog"
	"net/http"

	apierrors "fuelpulse/internal/errors"
	"fuelpulse/internal/operator"
	"fuelpulse/internal/services"
)

// NewErrorHandler creates the problem-details handler with the service
// errors mapped to their HTTP statuses
func NewErrorHandler(logger *slog.Logger, includeStack bool) *apierrors.ErrorHandler {
	return apierrors.NewErrorHandler(logger, includeStack).
		Register(services.ErrProductNotFound, http.StatusNotFound, apierrors.TypeProductNotFound, "Product Not Found").
		Register(services.ErrNoMarketData, http.StatusNotFound, apierrors.TypeNoMarketData, "No Market Data").
		Register(operator.ErrSheetNotFound, http.StatusNotFound, apierrors.TypeStationNotFound, "Station Not Found").
		Register(services.ErrInvalidOperatorPrice, http.StatusBadRequest, apierrors.TypeInvalidPrice, "Invalid Operator Price").
		Register(services.ErrInvalidDateRange, http.StatusBadRequest, apierrors.TypeValidation, "Invalid Date Range")
}
