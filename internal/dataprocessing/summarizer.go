package dataprocessing

import (
	"math"
	"sort"
	"time"

	"fuelpulse/internal/pricing"
	"fuelpulse/pkg/contracts/domain"
)

// BuildDailySummaries aggregates the quotes of one product per UTC calendar
// day, oldest day first. Within a day each distributor contributes its latest
// quote. Rows without a date or without a usable price are ignored.
func BuildDailySummaries(rows []domain.PriceRow, product string) []domain.DailySummary {
	days := make(map[time.Time][]domain.PriceRow)
	for _, row := range rows {
		if row.Product != product || row.ObservedAt.IsZero() || !row.HasPrice() {
			continue
		}
		day := truncateDay(row.ObservedAt)
		days[day] = append(days[day], row)
	}

	dates := make([]time.Time, 0, len(days))
	for d := range days {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	summaries := make([]domain.DailySummary, 0, len(dates))
	for _, day := range dates {
		prices := GroupByProduct(days[day], nil)[product]
		minInfo := pricing.MinPrice(prices)

		maxPrice := math.Inf(-1)
		for _, v := range prices.Values() {
			maxPrice = math.Max(maxPrice, v)
		}

		summaries = append(summaries, domain.DailySummary{
			Date:                 day,
			Product:              product,
			AveragePrice:         pricing.TrimmedAverageOf(prices),
			MinPrice:             minInfo.MinPrice,
			MaxPrice:             maxPrice,
			SampleCount:          len(prices),
			CheapestDistributors: minInfo.Distributors,
		})
	}
	return summaries
}

// FilterByDate keeps the rows observed within [from, to] by calendar day.
// A zero bound is open. Undated rows are kept only when both bounds are zero.
func FilterByDate(rows []domain.PriceRow, from, to time.Time) []domain.PriceRow {
	if from.IsZero() && to.IsZero() {
		return rows
	}
	out := make([]domain.PriceRow, 0, len(rows))
	for _, row := range rows {
		if row.ObservedAt.IsZero() {
			continue
		}
		day := truncateDay(row.ObservedAt)
		if !from.IsZero() && day.Before(truncateDay(from)) {
			continue
		}
		if !to.IsZero() && day.After(truncateDay(to)) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
