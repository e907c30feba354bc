package api

import (
	"time"

	"fuelpulse/pkg/contracts/domain"
)

// AverageResponse is returned by POST /api/analytics/average
type AverageResponse struct {
	Average     float64 `json:"average"`
	SampleCount int     `json:"sample_count"`
}

// RankResponse is returned by POST /api/analytics/rank
type RankResponse struct {
	Ranking []domain.RankedEntry `json:"ranking"`
}

// ProductsResponse lists the products present in the market data
type ProductsResponse struct {
	Products []string `json:"products"`
	Count    int      `json:"count"`
}

// DistributorsResponse lists the distributors quoting one product
type DistributorsResponse struct {
	Product      string   `json:"product"`
	Distributors []string `json:"distributors"`
	Count        int      `json:"count"`
}

// SummariesResponse wraps the per-product market summaries
type SummariesResponse struct {
	Summaries    []domain.ProductSummary `json:"summaries"`
	Distributors []string                `json:"distributors,omitempty"`
	GeneratedAt  time.Time               `json:"generated_at"`
}

// HistoryResponse holds the daily aggregates of one product
type HistoryResponse struct {
	Product string                `json:"product"`
	From    string                `json:"from,omitempty"`
	To      string                `json:"to,omitempty"`
	Days    []domain.DailySummary `json:"days"`
}

// OperatorPricesResponse echoes a stored operator price sheet. Saving a
// sheet also returns the comparison it produced.
type OperatorPricesResponse struct {
	Sheet      domain.OperatorPriceSheet `json:"sheet"`
	Comparison *domain.Comparison        `json:"comparison,omitempty"`
}

// RefreshResponse reports the outcome of a market refresh
type RefreshResponse struct {
	Products    int       `json:"products"`
	Clients     int       `json:"clients"`
	RefreshedAt time.Time `json:"refreshed_at"`
}
