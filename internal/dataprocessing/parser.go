package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"fuelpulse/pkg/contracts/domain"
)

// Column names recognised in a market CSV header
const (
	ColumnProduct     = "product"
	ColumnDistributor = "distributor"
	ColumnPrice       = "price"
	ColumnDate        = "date"
)

// DateLayout is the plain calendar date format accepted in the date column
const DateLayout = "2006-01-02"

var (
	// ErrEmptyInput is returned when the CSV has no header row
	ErrEmptyInput = errors.New("csv input is empty")
	// ErrMissingColumn is returned when a required header column is absent
	ErrMissingColumn = errors.New("required column missing")
)

// ParseIssue describes a row-level problem found while parsing.
type ParseIssue struct {
	Line   int    `json:"line"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (i ParseIssue) String() string {
	return fmt.Sprintf("line %d, column %s: %s (%q)", i.Line, i.Column, i.Reason, i.Value)
}

// ParseCSV reads market quotes from a header-driven CSV stream.
//
// The header must name product, distributor and price columns; a date column
// is optional. Header names are case-insensitive and columns may appear in any
// order. Rows without a product or distributor are skipped and reported. A
// blank price cell yields an absent price; an unparsable, negative or
// non-finite price is reported and also left absent.
func ParseCSV(r io.Reader) ([]domain.PriceRow, []ParseIssue, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, ErrEmptyInput
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}

	columns, err := mapColumns(header, ColumnProduct, ColumnDistributor, ColumnPrice)
	if err != nil {
		return nil, nil, err
	}

	var (
		rows   []domain.PriceRow
		issues []ParseIssue
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, issues, fmt.Errorf("read csv record: %w", err)
		}
		line, _ := reader.FieldPos(0)

		if isBlankRecord(record) {
			continue
		}

		cell := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		product := NormalizeIdentifier(cell(ColumnProduct))
		if product == "" {
			issues = append(issues, ParseIssue{Line: line, Column: ColumnProduct, Reason: "missing product"})
			continue
		}
		distributor := NormalizeIdentifier(cell(ColumnDistributor))
		if distributor == "" {
			issues = append(issues, ParseIssue{Line: line, Column: ColumnDistributor, Reason: "missing distributor"})
			continue
		}

		row := domain.PriceRow{Product: product, Distributor: distributor}

		rawPrice := cell(ColumnPrice)
		if rawPrice != "" {
			price, reason := parsePrice(rawPrice)
			if reason != "" {
				issues = append(issues, ParseIssue{Line: line, Column: ColumnPrice, Value: rawPrice, Reason: reason})
			} else {
				row.Price = &price
			}
		}

		if rawDate := cell(ColumnDate); rawDate != "" {
			observed, err := ParseDate(rawDate)
			if err != nil {
				issues = append(issues, ParseIssue{Line: line, Column: ColumnDate, Value: rawDate, Reason: "unrecognised date"})
			} else {
				row.ObservedAt = observed
			}
		}

		rows = append(rows, row)
	}

	return rows, issues, nil
}

// ParseDate accepts either a calendar date (2006-01-02) or an RFC3339 timestamp.
// Results are in UTC.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t.UTC(), nil
}

// ParseOperatorCSV reads an operator's own price list: one product and price
// per row. A product listed twice keeps its last price. Rows without a usable
// price are reported and skipped.
func ParseOperatorCSV(r io.Reader) (map[string]float64, []ParseIssue, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, ErrEmptyInput
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}

	columns, err := mapColumns(header, ColumnProduct, ColumnPrice)
	if err != nil {
		return nil, nil, err
	}
	productIdx, priceIdx := columns[ColumnProduct], columns[ColumnPrice]

	prices := make(map[string]float64)
	var issues []ParseIssue
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return prices, issues, fmt.Errorf("read csv record: %w", err)
		}
		line, _ := reader.FieldPos(0)

		if isBlankRecord(record) || productIdx >= len(record) {
			continue
		}

		product := NormalizeIdentifier(record[productIdx])
		if product == "" {
			issues = append(issues, ParseIssue{Line: line, Column: ColumnProduct, Reason: "missing product"})
			continue
		}

		var rawPrice string
		if priceIdx < len(record) {
			rawPrice = strings.TrimSpace(record[priceIdx])
		}
		if rawPrice == "" {
			issues = append(issues, ParseIssue{Line: line, Column: ColumnPrice, Reason: "missing price"})
			continue
		}
		price, reason := parsePrice(rawPrice)
		if reason != "" {
			issues = append(issues, ParseIssue{Line: line, Column: ColumnPrice, Value: rawPrice, Reason: reason})
			continue
		}
		prices[product] = price
	}

	return prices, issues, nil
}

func mapColumns(header []string, required ...string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		switch name {
		case ColumnProduct, "fuel", "product_name":
			setOnce(columns, ColumnProduct, i)
		case ColumnDistributor, "supplier", "distributor_name":
			setOnce(columns, ColumnDistributor, i)
		case ColumnPrice, "unit_price":
			setOnce(columns, ColumnPrice, i)
		case ColumnDate, "observed_at", "observed_on":
			setOnce(columns, ColumnDate, i)
		}
	}

	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return columns, nil
}

func setOnce(columns map[string]int, name string, idx int) {
	if _, exists := columns[name]; !exists {
		columns[name] = idx
	}
}

// parsePrice parses a price cell. A lone comma is read as the decimal
// separator, so "5,79" and "5.79" are equivalent.
func parsePrice(raw string) (float64, string) {
	s := raw
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, "invalid number"
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, "non-finite price"
	}
	if v < 0 {
		return 0, "negative price"
	}
	return v, ""
}

func isBlankRecord(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
