package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// PriceDecimals is the precision of every average the package returns
const PriceDecimals = 3

// Round rounds v half away from zero to the given number of decimal places.
// Rounding happens on the shortest decimal representation of v, so binary
// noise such as 5.1499999999999995 rounds to 5.15.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			out = append(out, v)
		}
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
