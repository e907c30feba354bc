package pricing

import (
	"sort"

	"fuelpulse/pkg/contracts/domain"
)

// Quote is an ordered (distributor, price) pair. A nil Price means no quote.
type Quote struct {
	Distributor string
	Price       *float64
}

// DenseRank orders the quoted distributors of one product by ascending price.
// Equal prices share a rank and the next distinct price gets the next integer,
// starting at 1. Missing and non-finite prices are left out. Ties are ordered
// by distributor id since a map carries no order of its own.
func DenseRank(prices domain.ProductPriceMap) []domain.RankedEntry {
	quotes := make([]Quote, 0, len(prices))
	for distributor, price := range prices {
		quotes = append(quotes, Quote{Distributor: distributor, Price: price})
	}
	sort.Slice(quotes, func(i, j int) bool {
		return quotes[i].Distributor < quotes[j].Distributor
	})
	return DenseRankQuotes(quotes)
}

// DenseRankQuotes ranks an ordered list of quotes. The sort is stable, so
// tied distributors keep the relative order they had in quotes.
func DenseRankQuotes(quotes []Quote) []domain.RankedEntry {
	entries := make([]domain.RankedEntry, 0, len(quotes))
	for _, q := range quotes {
		if q.Price == nil || !isFinite(*q.Price) {
			continue
		}
		entries = append(entries, domain.RankedEntry{
			Distributor: q.Distributor,
			Price:       *q.Price,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Price < entries[j].Price
	})

	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Price > entries[i-1].Price {
			rank++
		}
		entries[i].Rank = rank
	}
	return entries
}

// RankOf returns the rank held by distributor, or 0 if it is not ranked
func RankOf(entries []domain.RankedEntry, distributor string) int {
	for _, e := range entries {
		if e.Distributor == distributor {
			return e.Rank
		}
	}
	return 0
}
