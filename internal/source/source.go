package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"fuelpulse/internal/config"
	"fuelpulse/internal/dataprocessing"
	"fuelpulse/pkg/contracts/domain"
)

// ErrUnknownDriver is returned by New for an unsupported driver name
var ErrUnknownDriver = errors.New("unknown price source driver")

// PriceSource provides snapshots of market quotes
type PriceSource interface {
	// Rows returns every quote matching q
	Rows(ctx context.Context, q Query) ([]domain.PriceRow, error)
	// Ping reports whether the source is reachable
	Ping(ctx context.Context) error
	// Name identifies the source in logs and metrics
	Name() string
	Close() error
}

// Query narrows a snapshot. Empty lists and zero times mean no restriction.
// Date bounds are inclusive calendar days; undated rows are dropped when a
// bound is set.
type Query struct {
	Products     []string
	Distributors []string
	From         time.Time
	To           time.Time
}

func (q Query) matcher() func(domain.PriceRow) bool {
	products := toSet(q.Products)
	distributors := toSet(q.Distributors)
	return func(row domain.PriceRow) bool {
		if len(products) > 0 && !products[row.Product] {
			return false
		}
		if len(distributors) > 0 && !distributors[row.Distributor] {
			return false
		}
		return true
	}
}

// apply filters rows by identifiers and dates
func (q Query) apply(rows []domain.PriceRow) []domain.PriceRow {
	match := q.matcher()
	out := make([]domain.PriceRow, 0, len(rows))
	for _, row := range dataprocessing.FilterByDate(rows, q.From, q.To) {
		if match(row) {
			out = append(out, row)
		}
	}
	return out
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if n := dataprocessing.NormalizeIdentifier(id); n != "" {
			set[n] = true
		}
	}
	return set
}

// sanitizeRow normalizes identifiers and drops unusable prices. It reports
// false when the row has no product or distributor.
func sanitizeRow(row domain.PriceRow) (domain.PriceRow, bool) {
	row.Product = dataprocessing.NormalizeIdentifier(row.Product)
	row.Distributor = dataprocessing.NormalizeIdentifier(row.Distributor)
	if row.Product == "" || row.Distributor == "" {
		return row, false
	}
	if row.Price != nil {
		p := *row.Price
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			row.Price = nil
		}
	}
	if !row.ObservedAt.IsZero() {
		row.ObservedAt = row.ObservedAt.UTC()
	}
	return row, true
}

// New opens the source selected by cfg.Driver
func New(ctx context.Context, cfg config.SourceConfig, logger *slog.Logger) (PriceSource, error) {
	switch cfg.Driver {
	case config.DriverCSV:
		return NewCSVSource(cfg.Path, logger), nil
	case config.DriverSQLite, config.DriverPostgres:
		dsn := cfg.DSN
		if dsn == "" && cfg.Driver == config.DriverSQLite {
			// a sqlite DSN is just the database file
			dsn = cfg.Path
		}
		src, err := OpenSQL(ctx, SQLOptions{
			Driver:       cfg.Driver,
			DSN:          dsn,
			Table:        cfg.Table,
			QueryTimeout: cfg.QueryTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := src.EnsureSchema(ctx); err != nil {
				src.Close()
				return nil, err
			}
		}
		return src, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
