package testutil

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fuelpulse/pkg/contracts/domain"
)

// FixtureDay is the observation date used by MarketRows
var FixtureDay = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

// Row builds a price row. A negative price produces a row without a quote.
func Row(product, distributor string, price float64, observedAt time.Time) domain.PriceRow {
	row := domain.PriceRow{
		Product:     product,
		Distributor: distributor,
		ObservedAt:  observedAt,
	}
	if price >= 0 {
		row.Price = domain.Price(price)
	}
	return row
}

// MarketRows returns a small two-product market observed on FixtureDay.
// Gasoline has an outlier quote from "delta"; diesel has a tie at the minimum.
func MarketRows() []domain.PriceRow {
	return []domain.PriceRow{
		Row("gasoline", "alpha", 5.0, FixtureDay),
		Row("gasoline", "bravo", 5.1, FixtureDay),
		Row("gasoline", "charlie", 5.2, FixtureDay),
		Row("gasoline", "echo", 5.3, FixtureDay),
		Row("gasoline", "delta", 50.0, FixtureDay),
		Row("diesel", "alpha", 6.0, FixtureDay),
		Row("diesel", "bravo", 5.8, FixtureDay),
		Row("diesel", "charlie", 5.8, FixtureDay),
		Row("diesel", "delta", -1, FixtureDay),
	}
}

// WriteCSV writes rows to a CSV file under t.TempDir and returns its path
func WriteCSV(t *testing.T, rows []domain.PriceRow) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "prices.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.Write([]string{"product", "distributor", "price", "date"}))
	for _, r := range rows {
		price := ""
		if r.Price != nil {
			price = strconv.FormatFloat(*r.Price, 'f', -1, 64)
		}
		require.NoError(t, w.Write([]string{r.Product, r.Distributor, price, r.ObservedAt.Format("2006-01-02")}))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return path
}
