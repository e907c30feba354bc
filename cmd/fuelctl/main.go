package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fuelpulse/internal/config"
	"fuelpulse/internal/infrastructure"
	"fuelpulse/internal/operator"
	"fuelpulse/internal/services"
	"fuelpulse/internal/source"
	"fuelpulse/internal/validation"
	"fuelpulse/pkg/contracts"
)

// options holds the persistent flags shared by every command
type options struct {
	file     string
	driver   string
	dsn      string
	table    string
	timeout  time.Duration
	logLevel string

	logger *slog.Logger
	files  *validation.FileValidator
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "fuelctl",
		Short: "Fuel market prices from the terminal",
		Long: `fuelctl runs the FuelPulse analytics on a price file or database.

Market prices are read from a CSV file with product, distributor, price and
optional date columns, or from a sqlite/postgres table.

Examples:
  fuelctl summary --file prices.csv
  fuelctl rank --file prices.csv --product diesel
  fuelctl compare --file prices.csv --mine mine.csv --out comparison.xlsx
  fuelctl average 5.0 5.1 5.2 5.3 50`,
		Version:       contracts.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.logger = infrastructure.NewLogger(cmd.ErrOrStderr(), opts.logLevel)
			opts.files = validation.NewFileValidator(opts.logger, validation.DefaultMaxFileSize)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.file, "file", "f", "prices.csv", "market price CSV file, or sqlite database path")
	flags.StringVar(&opts.driver, "driver", config.DriverCSV, "price source driver: csv, sqlite or postgres")
	flags.StringVar(&opts.dsn, "dsn", "", "database connection string for sqlite or postgres")
	flags.StringVar(&opts.table, "table", "market_prices", "price table name")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "timeout for the whole command")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	root.AddCommand(
		newSummaryCmd(opts),
		newRankCmd(opts),
		newCompareCmd(opts),
		newAverageCmd(opts),
		newImportCmd(opts),
	)
	return root
}

func (o *options) sourceConfig() config.SourceConfig {
	return config.SourceConfig{
		Driver:       o.driver,
		Path:         o.file,
		DSN:          o.dsn,
		Table:        o.table,
		QueryTimeout: o.timeout,
		AutoMigrate:  false,
	}
}

// openMarket opens the configured price source behind a MarketService. The
// returned closer releases the source.
func (o *options) openMarket(ctx context.Context) (*services.MarketService, io.Closer, error) {
	if o.driver == config.DriverCSV {
		if err := o.files.ValidateCSVFile(o.file); err != nil {
			return nil, nil, err
		}
	}

	src, err := source.New(ctx, o.sourceConfig(), o.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open price source: %w", err)
	}
	if err := src.Ping(ctx); err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("price source %s unavailable: %w", src.Name(), err)
	}
	return services.NewMarketService(src, operator.NewMemoryStore(), o.logger), src, nil
}

func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, o.timeout)
}
