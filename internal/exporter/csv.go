package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"fuelpulse/internal/config"
	"fuelpulse/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ComparisonHeaders are the columns of a comparison CSV
var ComparisonHeaders = []string{
	"product",
	"operator_price",
	"market_available",
	"market_average",
	"market_min",
	"cheapest_distributors",
	"difference_from_average",
	"percent_from_average",
	"market_rank",
	"ranked_distributors",
}

// SummaryHeaders are the columns of a market summary CSV
var SummaryHeaders = []string{
	"product",
	"average_price",
	"min_price",
	"cheapest_distributors",
	"sample_count",
	"distributor_count",
}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	includeBOM bool
	paths      *config.Paths
}

// NewCSVWriter creates a CSV writer. paths resolves relative file names in
// SaveFile and may be nil.
func NewCSVWriter(includeBOM bool, paths *config.Paths) *CSVWriter {
	return &CSVWriter{includeBOM: includeBOM, paths: paths}
}

// WriteComparison writes one row per compared product. Market columns are
// empty for products the market does not quote.
func (w *CSVWriter) WriteComparison(out io.Writer, c domain.Comparison) error {
	records := make([][]string, 0, len(c.Products))
	for _, p := range c.Products {
		record := []string{p.Product, formatPrice(p.OperatorPrice), formatBool(p.MarketAvailable)}
		if !p.MarketAvailable {
			record = append(record, "", "", "", "", "", "", "")
			records = append(records, record)
			continue
		}
		minPrice, cheapest := formatMin(p.MarketMin)
		record = append(record,
			formatPrice(p.MarketAverage),
			minPrice,
			cheapest,
			formatPrice(p.DifferenceFromAverage),
			formatPercent(p.PercentFromAverage),
			formatInt(p.MarketRank),
			formatInt(p.RankedDistributors),
		)
		records = append(records, record)
	}
	return w.write(out, ComparisonHeaders, records)
}

// WriteSummaries writes one row per product summary
func (w *CSVWriter) WriteSummaries(out io.Writer, summaries []domain.ProductSummary) error {
	records := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		minPrice, cheapest := formatMin(s.Min)
		records = append(records, []string{
			s.Product,
			formatPrice(s.AveragePrice),
			minPrice,
			cheapest,
			formatInt(s.SampleCount),
			formatInt(s.DistributorCount),
		})
	}
	return w.write(out, SummaryHeaders, records)
}

// SaveFile creates filePath, relative names landing in the exports
// directory, and fills it with write
func (w *CSVWriter) SaveFile(filePath string, write func(io.Writer) error) (string, error) {
	fullPath := w.resolvePath(filePath)

	slog.Info("Writing export file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if err := write(file); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	return fullPath, nil
}

func (w *CSVWriter) write(out io.Writer, headers []string, records [][]string) error {
	if w.includeBOM {
		if _, err := out.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	return w.paths.GetExportPath(filePath)
}
