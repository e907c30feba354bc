package dataprocessing

import (
	"sort"

	"fuelpulse/pkg/contracts/domain"
)

// GroupByProduct builds one ProductPriceMap per product from a batch of rows.
//
// When a distributor quotes a product more than once the quote with the
// latest ObservedAt wins, and on equal times the later row wins. A non-empty
// distributors list restricts the result to those distributors. Products left
// with no distributor after filtering are omitted.
func GroupByProduct(rows []domain.PriceRow, distributors []string) map[string]domain.ProductPriceMap {
	allowed := make(map[string]bool)
	for _, d := range normalizeAll(distributors) {
		allowed[d] = true
	}

	latest := make(map[string]map[string]domain.PriceRow)
	for _, row := range rows {
		if row.Product == "" || row.Distributor == "" {
			continue
		}
		if len(allowed) > 0 && !allowed[row.Distributor] {
			continue
		}
		byDistributor, ok := latest[row.Product]
		if !ok {
			byDistributor = make(map[string]domain.PriceRow)
			latest[row.Product] = byDistributor
		}
		if prev, seen := byDistributor[row.Distributor]; seen && row.ObservedAt.Before(prev.ObservedAt) {
			continue
		}
		byDistributor[row.Distributor] = row
	}

	grouped := make(map[string]domain.ProductPriceMap, len(latest))
	for product, byDistributor := range latest {
		prices := make(domain.ProductPriceMap, len(byDistributor))
		for distributor, row := range byDistributor {
			if row.HasPrice() {
				prices[distributor] = domain.Price(*row.Price)
			} else {
				prices[distributor] = nil
			}
		}
		grouped[product] = prices
	}
	return grouped
}

// Products returns the distinct products present in rows, sorted
func Products(rows []domain.PriceRow) []string {
	return distinct(rows, func(r domain.PriceRow) string { return r.Product })
}

// Distributors returns the distinct distributors quoting product, sorted.
// An empty product matches every row.
func Distributors(rows []domain.PriceRow, product string) []string {
	filtered := rows
	if product != "" {
		filtered = make([]domain.PriceRow, 0, len(rows))
		for _, r := range rows {
			if r.Product == product {
				filtered = append(filtered, r)
			}
		}
	}
	return distinct(filtered, func(r domain.PriceRow) string { return r.Distributor })
}

func distinct(rows []domain.PriceRow, key func(domain.PriceRow) string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, r := range rows {
		k := key(r)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
