package pricing

import (
	"sort"

	"fuelpulse/pkg/contracts/domain"
)

const (
	// MinTrimSample is the smallest sample that gets quartile trimming
	MinTrimSample = 4
	// IQRMultiplier scales the interquartile range into the outlier fences
	IQRMultiplier = 1.5
)

// TrimmedAverage returns the representative market price of a product,
// rounded to PriceDecimals places.
//
// Non-finite values are dropped first. An empty sample yields 0 and samples
// smaller than MinTrimSample yield their plain mean. Larger samples are sorted
// and Q1/Q3 are taken positionally at n/4 and 3n/4 (no interpolation); values
// outside [Q1-1.5*IQR, Q3+1.5*IQR] are discarded before averaging.
//
// The mean is a plain sum divided by the count, so a sample whose sum
// overflows float64 returns +Inf or -Inf unrounded.
func TrimmedAverage(prices []float64) float64 {
	values := finiteValues(prices)
	n := len(values)
	if n == 0 {
		return 0
	}
	if n < MinTrimSample {
		return Round(mean(values), PriceDecimals)
	}

	sort.Float64s(values)
	lower, upper := Fences(values)

	kept := make([]float64, 0, n)
	for _, v := range values {
		if v >= lower && v <= upper {
			kept = append(kept, v)
		}
	}
	// Q1 and Q3 are members of values, so kept is never empty in practice.
	if len(kept) == 0 {
		return Round(mean(values), PriceDecimals)
	}
	return Round(mean(kept), PriceDecimals)
}

// TrimmedAverageOf averages the present prices of a ProductPriceMap
func TrimmedAverageOf(prices domain.ProductPriceMap) float64 {
	return TrimmedAverage(prices.Values())
}

// Fences returns the inclusive outlier bounds of an ascending sample.
// The caller must pass a non-empty sorted slice.
func Fences(sorted []float64) (lower, upper float64) {
	n := len(sorted)
	q1 := sorted[n/4]
	q3 := sorted[n*3/4]
	iqr := q3 - q1
	return q1 - IQRMultiplier*iqr, q3 + IQRMultiplier*iqr
}
