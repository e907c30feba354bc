package domain

import (
	"time"
)

// OperatorDistributorID is the reserved distributor id under which an operator's
// own price is inserted into a market ranking.
const OperatorDistributorID = "__operator__"

// OperatorPriceSheet holds the retail prices a station operator entered
type OperatorPriceSheet struct {
	StationID string             `json:"station_id" validate:"required,max=64"`
	Prices    map[string]float64 `json:"prices" validate:"required,min=1"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// ProductComparison compares the operator's price for one product with the market
type ProductComparison struct {
	Product               string       `json:"product"`
	OperatorPrice         float64      `json:"operator_price"`
	MarketAvailable       bool         `json:"market_available"`
	MarketAverage         float64      `json:"market_average"`
	MarketMin             MinPriceInfo `json:"market_min"`
	DifferenceFromAverage float64      `json:"difference_from_average"`
	PercentFromAverage    float64      `json:"percent_from_average"`
	MarketRank            int          `json:"market_rank"`
	RankedDistributors    int          `json:"ranked_distributors"`
}

// Comparison is the full operator-versus-market comparison for one station
type Comparison struct {
	StationID    string              `json:"station_id"`
	Distributors []string            `json:"distributors,omitempty"`
	Products     []ProductComparison `json:"products"`
	GeneratedAt  time.Time           `json:"generated_at"`
}
