package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"fuelpulse/internal/config"
	apierrors "fuelpulse/internal/errors"
	"fuelpulse/internal/infrastructure"
	"fuelpulse/pkg/contracts/domain"
)

// ErrInvalidTable is returned when the configured table name is not a plain identifier
var ErrInvalidTable = errors.New("invalid table name")

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLOptions configures OpenSQL
type SQLOptions struct {
	Driver       string
	DSN          string
	Table        string
	QueryTimeout time.Duration
}

// SQLSource reads quotes from a market_prices style table
type SQLSource struct {
	db      *sql.DB
	driver  string
	table   string
	timeout time.Duration
	logger  *slog.Logger
}

// OpenSQL opens a database handle and verifies the connection
func OpenSQL(ctx context.Context, opts SQLOptions, logger *slog.Logger) (*SQLSource, error) {
	if opts.Table == "" {
		opts.Table = config.DefaultSourceTable
	}
	if !tableNamePattern.MatchString(opts.Table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, opts.Table)
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = config.DefaultQueryTimeout
	}

	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, apierrors.NewSourceError("open database", err)
	}
	if opts.Driver == config.DriverSQLite {
		// one connection keeps ":memory:" databases consistent across calls
		db.SetMaxOpenConns(1)
	}

	s := &SQLSource{
		db:      db,
		driver:  opts.Driver,
		table:   opts.Table,
		timeout: opts.QueryTimeout,
		logger:  infrastructure.WithComponent(logger, "sql_source"),
	}

	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Name returns the driver name
func (s *SQLSource) Name() string { return s.driver }

// Ping verifies the database connection
func (s *SQLSource) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return apierrors.NewSourceError("database unreachable", err).WithContext("driver", s.driver)
	}
	return nil
}

// Close closes the database handle
func (s *SQLSource) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the quotes table and its lookup index if missing
func (s *SQLSource) EnsureSchema(ctx context.Context) error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	timeType := "DATETIME"
	if s.driver == config.DriverPostgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
		timeType = "TIMESTAMPTZ"
	}

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s,
	product TEXT NOT NULL,
	distributor TEXT NOT NULL,
	price DOUBLE PRECISION,
	observed_at %s
)`, s.table, idColumn, timeType),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_product ON %s (product, observed_at)`, s.table, s.table),
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apierrors.NewStorageError("create schema", err).WithContext("table", s.table)
		}
	}

	s.logger.DebugContext(ctx, "schema ready", slog.String("table", s.table))
	return nil
}

// placeholder returns the n-th (1-based) bind parameter for the driver
func (s *SQLSource) placeholder(n int) string {
	if s.driver == config.DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Rows selects the quotes in q's date range; identifier filters are applied
// after normalization so stored spelling variants still match
func (s *SQLSource) Rows(ctx context.Context, q Query) ([]domain.PriceRow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		where []string
		args  []any
	)
	if !q.From.IsZero() {
		args = append(args, truncateDay(q.From))
		where = append(where, "observed_at >= "+s.placeholder(len(args)))
	}
	if !q.To.IsZero() {
		args = append(args, truncateDay(q.To).AddDate(0, 0, 1))
		where = append(where, "observed_at < "+s.placeholder(len(args)))
	}

	query := fmt.Sprintf("SELECT product, distributor, price, observed_at FROM %s", s.table)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rs, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.queryError(ctx, err)
	}
	defer rs.Close()

	match := q.matcher()
	rows := make([]domain.PriceRow, 0)
	skipped := 0
	for rs.Next() {
		var (
			row        domain.PriceRow
			price      sql.NullFloat64
			observedAt sql.NullTime
		)
		if err := rs.Scan(&row.Product, &row.Distributor, &price, &observedAt); err != nil {
			return nil, apierrors.NewStorageError("scan price row", err)
		}
		if price.Valid {
			row.Price = domain.Price(price.Float64)
		}
		if observedAt.Valid {
			row.ObservedAt = observedAt.Time
		}

		row, ok := sanitizeRow(row)
		if !ok {
			skipped++
			continue
		}
		if match(row) {
			rows = append(rows, row)
		}
	}
	if err := rs.Err(); err != nil {
		return nil, s.queryError(ctx, err)
	}

	if skipped > 0 {
		s.logger.WarnContext(ctx, "skipped rows without product or distributor",
			slog.String("table", s.table),
			slog.Int("skipped", skipped))
	}
	return rows, nil
}

// Insert stores rows in one transaction
func (s *SQLSource) Insert(ctx context.Context, rows []domain.PriceRow) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apierrors.NewStorageError("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (product, distributor, price, observed_at) VALUES (%s, %s, %s, %s)",
		s.table, s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4)))
	if err != nil {
		return apierrors.NewStorageError("prepare insert", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		var price sql.NullFloat64
		if row.Price != nil {
			price = sql.NullFloat64{Float64: *row.Price, Valid: true}
		}
		var observedAt sql.NullTime
		if !row.ObservedAt.IsZero() {
			observedAt = sql.NullTime{Time: row.ObservedAt.UTC(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, row.Product, row.Distributor, price, observedAt); err != nil {
			return apierrors.NewStorageError("insert price row", err).
				WithContext("product", row.Product).
				WithContext("distributor", row.Distributor)
		}
	}

	if err := tx.Commit(); err != nil {
		return apierrors.NewStorageError("commit", err)
	}
	return nil
}

func (s *SQLSource) queryError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("query %s: %w", s.table, ctxErr)
	}
	return apierrors.NewSourceError("query "+s.table, err)
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
