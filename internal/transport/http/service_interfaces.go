package http

import (
	"context"
	"time"

	"fuelpulse/pkg/contracts/domain"
)

// MarketServiceInterface defines the market read operations the handlers use
type MarketServiceInterface interface {
	Products(ctx context.Context) ([]string, error)
	Distributors(ctx context.Context, product string) ([]string, error)
	Summary(ctx context.Context, product string, distributors []string) (domain.ProductSummary, error)
	Summaries(ctx context.Context, distributors []string) ([]domain.ProductSummary, error)
	History(ctx context.Context, product string, from, to time.Time) ([]domain.DailySummary, error)
	Refresh(ctx context.Context) ([]domain.ProductSummary, error)
}

// OperatorServiceInterface defines the operator price operations
type OperatorServiceInterface interface {
	OperatorPrices(ctx context.Context, stationID string) (domain.OperatorPriceSheet, error)
	SaveOperatorPrices(ctx context.Context, sheet domain.OperatorPriceSheet) (domain.Comparison, error)
	DeleteOperatorPrices(ctx context.Context, stationID string) error
	Compare(ctx context.Context, stationID string, distributors []string) (domain.Comparison, error)
	CompareReport(ctx context.Context, stationID string, distributors []string) (domain.Comparison, []domain.ProductSummary, error)
}

// ClientCounter reports how many dashboards are connected
type ClientCounter interface {
	ClientCount() int
}
