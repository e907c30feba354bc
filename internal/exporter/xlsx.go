package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"fuelpulse/pkg/contracts/domain"
)

// Sheet names of a comparison workbook
const (
	ComparisonSheet = "Comparison"
	RankingSheet    = "Market Ranking"
)

// XLSXContentType is the media type of workbooks written by XLSXExporter
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var rankingHeaders = []string{"product", "rank", "distributor", "price"}

// XLSXExporter builds comparison workbooks
type XLSXExporter struct {
	logger *slog.Logger
}

// NewXLSXExporter creates an XLSX exporter
func NewXLSXExporter(logger *slog.Logger) *XLSXExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXExporter{logger: logger.With(slog.String("component", "xlsx_exporter"))}
}

// Comparison builds a workbook with the comparison rows on the "Comparison"
// sheet and the ranking of every market summary on "Market Ranking". The
// caller owns the returned file and must Close it.
func (x *XLSXExporter) Comparison(c domain.Comparison, market []domain.ProductSummary) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", ComparisonSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(RankingSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := x.writeComparison(f, c, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	if err := x.writeRanking(f, market, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	x.logger.Debug("comparison workbook built",
		slog.String("station_id", c.StationID),
		slog.Int("products", len(c.Products)),
		slog.Int("ranked_products", len(market)))
	return f, nil
}

// WriteComparison builds the comparison workbook and writes it to out
func (x *XLSXExporter) WriteComparison(out io.Writer, c domain.Comparison, market []domain.ProductSummary) error {
	f, err := x.Comparison(c, market)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (x *XLSXExporter) writeComparison(f *excelize.File, c domain.Comparison, headerStyle int) error {
	if err := writeHeader(f, ComparisonSheet, ComparisonHeaders, headerStyle); err != nil {
		return err
	}

	for i, p := range c.Products {
		row := []interface{}{p.Product, p.OperatorPrice, p.MarketAvailable}
		if p.MarketAvailable {
			minPrice := interface{}("")
			if p.MarketMin.HasData() {
				minPrice = p.MarketMin.MinPrice
			}
			row = append(row,
				p.MarketAverage,
				minPrice,
				strings.Join(p.MarketMin.Distributors, DistributorSeparator),
				p.DifferenceFromAverage,
				p.PercentFromAverage,
				p.MarketRank,
				p.RankedDistributors,
			)
		}
		if err := setRow(f, ComparisonSheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (x *XLSXExporter) writeRanking(f *excelize.File, market []domain.ProductSummary, headerStyle int) error {
	if err := writeHeader(f, RankingSheet, rankingHeaders, headerStyle); err != nil {
		return err
	}

	row := 2
	for _, summary := range market {
		for _, entry := range summary.Ranking {
			if err := setRow(f, RankingSheet, row, []interface{}{
				summary.Product, entry.Rank, entry.Distributor, entry.Price,
			}); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := setRow(f, sheet, 1, row); err != nil {
		return err
	}

	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style header of %s: %w", sheet, err)
	}

	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return fmt.Errorf("failed to size columns of %s: %w", sheet, err)
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}
