package pricing

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelpulse/pkg/contracts/domain"
)

func TestDenseRank(t *testing.T) {
	tests := []struct {
		name     string
		prices   domain.ProductPriceMap
		expected []domain.RankedEntry
	}{
		{
			name:     "empty",
			prices:   domain.ProductPriceMap{},
			expected: []domain.RankedEntry{},
		},
		{
			name:   "single entry",
			prices: domain.ProductPriceMap{"A": domain.Price(5.0)},
			expected: []domain.RankedEntry{
				{Distributor: "A", Price: 5.0, Rank: 1},
			},
		},
		{
			name: "ties share a rank",
			prices: domain.ProductPriceMap{
				"A": domain.Price(5.0),
				"B": domain.Price(5.0),
				"C": domain.Price(5.2),
			},
			expected: []domain.RankedEntry{
				{Distributor: "A", Price: 5.0, Rank: 1},
				{Distributor: "B", Price: 5.0, Rank: 1},
				{Distributor: "C", Price: 5.2, Rank: 2},
			},
		},
		{
			name: "missing and non-finite prices are excluded",
			prices: domain.ProductPriceMap{
				"A": domain.Price(6.1),
				"B": nil,
				"C": domain.Price(math.NaN()),
				"D": domain.Price(5.9),
			},
			expected: []domain.RankedEntry{
				{Distributor: "D", Price: 5.9, Rank: 1},
				{Distributor: "A", Price: 6.1, Rank: 2},
			},
		},
		{
			name: "no gaps after ties",
			prices: domain.ProductPriceMap{
				"E": domain.Price(7.0),
				"D": domain.Price(6.0),
				"C": domain.Price(6.0),
				"B": domain.Price(6.0),
				"A": domain.Price(5.0),
			},
			expected: []domain.RankedEntry{
				{Distributor: "A", Price: 5.0, Rank: 1},
				{Distributor: "B", Price: 6.0, Rank: 2},
				{Distributor: "C", Price: 6.0, Rank: 2},
				{Distributor: "D", Price: 6.0, Rank: 2},
				{Distributor: "E", Price: 7.0, Rank: 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DenseRank(tt.prices)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("DenseRank() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDenseRank_ContiguousRanks(t *testing.T) {
	prices := domain.ProductPriceMap{}
	values := []float64{5.1, 4.9, 5.1, 5.3, 4.9, 6.0, 5.3, 5.0}
	for i, v := range values {
		prices[string(rune('A'+i))] = domain.Price(v)
	}

	entries := DenseRank(prices)
	require.Len(t, entries, len(values))

	assert.Equal(t, 1, entries[0].Rank)
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		assert.LessOrEqual(t, prev.Price, cur.Price)
		if cur.Price == prev.Price {
			assert.Equal(t, prev.Rank, cur.Rank)
		} else {
			assert.Equal(t, prev.Rank+1, cur.Rank)
		}
	}
}

func TestDenseRank_Recomputed(t *testing.T) {
	prices := domain.ProductPriceMap{"A": domain.Price(5.0), "B": domain.Price(5.5)}
	first := DenseRank(prices)

	prices["C"] = domain.Price(4.0)
	second := DenseRank(prices)

	assert.Equal(t, 1, RankOf(first, "A"))
	assert.Equal(t, 2, RankOf(second, "A"))
	assert.Equal(t, 1, RankOf(second, "C"))
}

func TestDenseRankQuotes_StableTies(t *testing.T) {
	quotes := []Quote{
		{Distributor: "Z", Price: domain.Price(5.0)},
		{Distributor: "M", Price: domain.Price(4.0)},
		{Distributor: "A", Price: domain.Price(5.0)},
		{Distributor: "N", Price: nil},
	}

	got := DenseRankQuotes(quotes)

	want := []domain.RankedEntry{
		{Distributor: "M", Price: 4.0, Rank: 1},
		{Distributor: "Z", Price: 5.0, Rank: 2},
		{Distributor: "A", Price: 5.0, Rank: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DenseRankQuotes() mismatch (-want +got):\n%s", diff)
	}
	assert.NotNil(t, DenseRankQuotes(nil))
}

func TestRankOf_Unknown(t *testing.T) {
	assert.Equal(t, 0, RankOf(nil, "A"))
}
