package domain

import (
	"encoding/json"
	"math"
	"time"
)

// PriceRow is a single upstream quote: one distributor's price for one product.
type PriceRow struct {
	Product     string    `json:"product" db:"product" validate:"required"`
	Distributor string    `json:"distributor" db:"distributor" validate:"required"`
	Price       *float64  `json:"price" db:"price"`
	ObservedAt  time.Time `json:"observed_at,omitempty" db:"observed_at"`
}

// HasPrice reports whether the row carries a usable finite price
func (r PriceRow) HasPrice() bool {
	return r.Price != nil && !math.IsNaN(*r.Price) && !math.IsInf(*r.Price, 0)
}

// ProductPriceMap maps distributor identifiers to their price for one product.
// A nil value means the distributor has no quote.
type ProductPriceMap map[string]*float64

// Values returns the present prices in unspecified order
func (m ProductPriceMap) Values() []float64 {
	values := make([]float64, 0, len(m))
	for _, p := range m {
		if p != nil {
			values = append(values, *p)
		}
	}
	return values
}

// Filter returns a copy restricted to the given distributors. An empty
// selection keeps every distributor.
func (m ProductPriceMap) Filter(distributors []string) ProductPriceMap {
	out := make(ProductPriceMap, len(m))
	if len(distributors) == 0 {
		for k, v := range m {
			out[k] = v
		}
		return out
	}
	for _, d := range distributors {
		if v, ok := m[d]; ok {
			out[d] = v
		}
	}
	return out
}

// Price returns a pointer to v, for building ProductPriceMap literals
func Price(v float64) *float64 {
	return &v
}

// RankedEntry is one distributor's position in a dense price ranking
type RankedEntry struct {
	Distributor string  `json:"distributor"`
	Price       float64 `json:"price"`
	Rank        int     `json:"rank"`
}

// MinPriceInfo holds the lowest price of a product and every distributor quoting it.
// MinPrice is +Inf when there is no data.
type MinPriceInfo struct {
	MinPrice     float64  `json:"min_price"`
	Distributors []string `json:"distributors"`
}

// HasData reports whether a minimum was found
func (m MinPriceInfo) HasData() bool {
	return !math.IsInf(m.MinPrice, 1)
}

// MarshalJSON encodes the +Inf sentinel as null since JSON has no infinity
func (m MinPriceInfo) MarshalJSON() ([]byte, error) {
	var minPrice *float64
	if m.HasData() {
		minPrice = &m.MinPrice
	}
	distributors := m.Distributors
	if distributors == nil {
		distributors = []string{}
	}
	return json.Marshal(struct {
		MinPrice     *float64 `json:"min_price"`
		Distributors []string `json:"distributors"`
		HasData      bool     `json:"has_data"`
	}{
		MinPrice:     minPrice,
		Distributors: distributors,
		HasData:      m.HasData(),
	})
}

// UnmarshalJSON restores the +Inf sentinel from a null min_price
func (m *MinPriceInfo) UnmarshalJSON(data []byte) error {
	var raw struct {
		MinPrice     *float64 `json:"min_price"`
		Distributors []string `json:"distributors"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.MinPrice = math.Inf(1)
	if raw.MinPrice != nil {
		m.MinPrice = *raw.MinPrice
	}
	m.Distributors = raw.Distributors
	if m.Distributors == nil {
		m.Distributors = []string{}
	}
	return nil
}

// ProductSummary is the market view of one product after filters are applied
type ProductSummary struct {
	Product          string        `json:"product"`
	AveragePrice     float64       `json:"average_price"`
	Min              MinPriceInfo  `json:"min"`
	Ranking          []RankedEntry `json:"ranking"`
	SampleCount      int           `json:"sample_count"`
	DistributorCount int           `json:"distributor_count"`
}

// DailySummary aggregates one product's quotes for one calendar day
type DailySummary struct {
	Date                 time.Time `json:"date"`
	Product              string    `json:"product"`
	AveragePrice         float64   `json:"average_price"`
	MinPrice             float64   `json:"min_price"`
	MaxPrice             float64   `json:"max_price"`
	SampleCount          int       `json:"sample_count"`
	CheapestDistributors []string  `json:"cheapest_distributors"`
}
