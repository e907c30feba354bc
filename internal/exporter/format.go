package exporter

import (
	"strconv"
	"strings"

	"fuelpulse/pkg/contracts/domain"
)

// DistributorSeparator joins distributor lists inside one cell
const DistributorSeparator = "; "

// formatPrice formats a price with exactly 3 decimal places
func formatPrice(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}

// formatPercent formats a percentage with exactly 2 decimal places
func formatPercent(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

func formatBool(b bool) string {
	return strconv.FormatBool(b)
}

// formatMin renders the minimum price and its distributors; both are empty
// when there is no data
func formatMin(m domain.MinPriceInfo) (price, distributors string) {
	if !m.HasData() {
		return "", ""
	}
	return formatPrice(m.MinPrice), strings.Join(m.Distributors, DistributorSeparator)
}
