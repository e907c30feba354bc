package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"fuelpulse/internal/dataprocessing"
	apierrors "fuelpulse/internal/errors"
	"fuelpulse/internal/infrastructure"
	"fuelpulse/pkg/contracts/domain"
)

const maxLoggedIssues = 5

// CSVSource reads quotes from a CSV file on every call
type CSVSource struct {
	path   string
	logger *slog.Logger
}

// NewCSVSource creates a source for the CSV file at path
func NewCSVSource(path string, logger *slog.Logger) *CSVSource {
	return &CSVSource{
		path:   path,
		logger: infrastructure.WithComponent(logger, "csv_source"),
	}
}

// Name returns "csv"
func (s *CSVSource) Name() string { return "csv" }

// Path returns the file being read
func (s *CSVSource) Path() string { return s.path }

// Rows parses the file and applies q
func (s *CSVSource) Rows(ctx context.Context, q Query) ([]domain.PriceRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, apierrors.NewSourceError("open price file", err).WithContext("path", s.path)
	}
	defer f.Close()

	rows, issues, err := dataprocessing.ParseCSV(f)
	if err != nil {
		return nil, apierrors.NewParsingError(fmt.Sprintf("parse %s", s.path), err)
	}

	if len(issues) > 0 {
		attrs := []any{
			slog.String("path", s.path),
			slog.Int("issues", len(issues)),
		}
		for i, issue := range issues {
			if i == maxLoggedIssues {
				break
			}
			attrs = append(attrs, slog.String(fmt.Sprintf("issue_%d", i+1), issue.String()))
		}
		s.logger.WarnContext(ctx, "price file contains invalid rows", attrs...)
	}

	return q.apply(rows), nil
}

// Ping checks that the file exists and is readable
func (s *CSVSource) Ping(_ context.Context) error {
	f, err := os.Open(s.path)
	if err != nil {
		return apierrors.NewSourceError("price file unavailable", err).WithContext("path", s.path)
	}
	return f.Close()
}

// Close is a no-op
func (s *CSVSource) Close() error { return nil }
