// Package api contains the HTTP request and response contracts.
// Version v1 represents the current stable API version.
package api

import (
	"errors"
	"net/http"
	"strings"
)

// AverageRequest is the body of POST /api/analytics/average.
// Null entries are absent prices and are skipped. Negative prices are
// averaged like any other.
type AverageRequest struct {
	Prices []*float64 `json:"prices" validate:"required"`
}

// Bind implements the render.Binder interface
func (a *AverageRequest) Bind(r *http.Request) error {
	if a.Prices == nil {
		return errors.New("prices is required")
	}
	return nil
}

// Values returns the present prices
func (a *AverageRequest) Values() []float64 {
	values := make([]float64, 0, len(a.Prices))
	for _, p := range a.Prices {
		if p != nil {
			values = append(values, *p)
		}
	}
	return values
}

// PriceMapRequest is the body of the rank and minimum endpoints: distributor
// identifier to price, null meaning no quote
type PriceMapRequest struct {
	Prices map[string]*float64 `json:"prices" validate:"required,dive,keys,identifier,endkeys"`
}

// Bind implements the render.Binder interface
func (p *PriceMapRequest) Bind(r *http.Request) error {
	if p.Prices == nil {
		return errors.New("prices is required")
	}
	return nil
}

// OperatorPricesRequest is the body of PUT /api/operators/{station}/prices
type OperatorPricesRequest struct {
	Prices map[string]float64 `json:"prices" validate:"required,min=1,max=200,dive,keys,identifier,endkeys,price"`
}

// Bind implements the render.Binder interface
func (o *OperatorPricesRequest) Bind(r *http.Request) error {
	if len(o.Prices) == 0 {
		return errors.New("at least one product price is required")
	}
	for product := range o.Prices {
		if strings.TrimSpace(product) == "" {
			return errors.New("product names must not be blank")
		}
	}
	return nil
}
