package pricing

import (
	"math"
	"sort"

	"fuelpulse/pkg/contracts/domain"
)

// MinPrice finds the lowest quoted price and every distributor quoting exactly
// that price. Ties use exact float equality. With no usable quote it returns
// a +Inf minimum and an empty distributor list.
func MinPrice(prices domain.ProductPriceMap) domain.MinPriceInfo {
	info := domain.MinPriceInfo{
		MinPrice:     math.Inf(1),
		Distributors: []string{},
	}

	for distributor, price := range prices {
		if price == nil || !isFinite(*price) {
			continue
		}
		switch {
		case *price < info.MinPrice:
			info.MinPrice = *price
			info.Distributors = append(info.Distributors[:0], distributor)
		case *price == info.MinPrice:
			info.Distributors = append(info.Distributors, distributor)
		}
	}

	sort.Strings(info.Distributors)
	return info
}
