package services

import "errors"

// Market service errors
var (
	ErrProductNotFound      = errors.New("product not found")
	ErrNoMarketData         = errors.New("no market data available")
	ErrInvalidOperatorPrice = errors.New("invalid operator price")
	ErrInvalidDateRange     = errors.New("invalid date range")
)
