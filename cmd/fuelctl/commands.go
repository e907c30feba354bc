package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fuelpulse/internal/config"
	"fuelpulse/internal/dataprocessing"
	"fuelpulse/internal/exporter"
	"fuelpulse/internal/pricing"
	"fuelpulse/internal/source"
	"fuelpulse/pkg/contracts/domain"
)

func newSummaryCmd(opts *options) *cobra.Command {
	var (
		product      string
		distributors []string
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Average, minimum and ranking per product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			market, closer, err := opts.openMarket(ctx)
			if err != nil {
				return err
			}
			defer closer.Close()

			if product != "" {
				summary, err := market.Summary(ctx, product, distributors)
				if err != nil {
					return err
				}
				return printProductSummary(cmd.OutOrStdout(), summary)
			}

			summaries, err := market.Summaries(ctx, distributors)
			if err != nil {
				return err
			}
			return printSummaries(cmd.OutOrStdout(), summaries)
		},
	}

	cmd.Flags().StringVarP(&product, "product", "p", "", "show one product in detail")
	cmd.Flags().StringSliceVarP(&distributors, "distributors", "d", nil, "only consider these distributors")
	return cmd
}

func newRankCmd(opts *options) *cobra.Command {
	var (
		product      string
		distributors []string
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Dense ranking of distributors for a product, cheapest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			market, closer, err := opts.openMarket(ctx)
			if err != nil {
				return err
			}
			defer closer.Close()

			summary, err := market.Summary(ctx, product, distributors)
			if err != nil {
				return err
			}
			return printRanking(cmd.OutOrStdout(), summary.Ranking)
		},
	}

	cmd.Flags().StringVarP(&product, "product", "p", "", "product to rank (required)")
	cmd.Flags().StringSliceVarP(&distributors, "distributors", "d", nil, "only rank these distributors")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

func newCompareCmd(opts *options) *cobra.Command {
	var (
		mine         string
		station      string
		out          string
		distributors []string
		bom          bool
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare your own prices with the market",
		Long: `Compare reads your prices from a CSV with product and price columns and
compares each one with the market average, minimum and ranking.

With --out the comparison is also written to a .csv or .xlsx file. The
workbook carries a second sheet with the market ranking of every product.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var format string
			if out != "" {
				f, err := opts.files.ValidateOutputFile(out, ".csv", ".xlsx")
				if err != nil {
					return err
				}
				format = f
			}

			if err := opts.files.ValidateCSVFile(mine); err != nil {
				return err
			}
			prices, err := readOperatorPrices(cmd.ErrOrStderr(), mine)
			if err != nil {
				return err
			}

			ctx, cancel := opts.context(cmd)
			defer cancel()

			market, closer, err := opts.openMarket(ctx)
			if err != nil {
				return err
			}
			defer closer.Close()

			if _, err := market.SaveOperatorPrices(ctx, domain.OperatorPriceSheet{StationID: station, Prices: prices}); err != nil {
				return err
			}
			comparison, summaries, err := market.CompareReport(ctx, station, distributors)
			if err != nil {
				return err
			}

			if err := printComparison(cmd.OutOrStdout(), comparison); err != nil {
				return err
			}

			if out == "" {
				return nil
			}
			path, err := writeComparison(out, format, bom, opts, comparison, summaries)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nComparison written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mine, "mine", "m", "", "CSV file with your product,price list (required)")
	cmd.Flags().StringVar(&station, "station", "local", "station id the prices are saved under")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the comparison to a .csv or .xlsx file")
	cmd.Flags().StringSliceVarP(&distributors, "distributors", "d", nil, "only compare against these distributors")
	cmd.Flags().BoolVar(&bom, "bom", true, "start CSV output with a UTF-8 byte order mark")
	_ = cmd.MarkFlagRequired("mine")
	return cmd
}

func newAverageCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "average [--] <price>...",
		Short: "Outlier-trimmed average of the given prices",
		Long: `Average drops prices outside the Tukey fences (1.5 × IQR beyond the
quartiles) and returns the mean of the rest, rounded to 3 decimals.
Fewer than four prices are averaged as they are.

Negative prices are accepted after a -- separator.`,
		Example: `  fuelctl average 5.0 5.1 5.2 5.3 50
  fuelctl average -- -1.5 -2 3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prices := make([]float64, 0, len(args))
			for _, arg := range args {
				v, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
				if err != nil {
					return fmt.Errorf("invalid price %q: %w", arg, err)
				}
				prices = append(prices, v)
			}

			opts.logger.Debug("averaging prices", slog.Int("count", len(prices)))
			fmt.Fprintln(cmd.OutOrStdout(), printer.Sprintf("%.3f", pricing.TrimmedAverage(prices)))
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w (put -- before negative prices)", err)
	})
	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a market price CSV into a sqlite or postgres table",
		Example: `  fuelctl import --from prices.csv --driver sqlite --file prices.db
  fuelctl import --from prices.csv --driver postgres --dsn postgres://localhost/fuel`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.driver == config.DriverCSV {
				return errors.New("import needs --driver sqlite or --driver postgres")
			}

			if err := opts.files.ValidateCSVFile(from); err != nil {
				return err
			}
			f, err := os.Open(from)
			if err != nil {
				return fmt.Errorf("open %s: %w", from, err)
			}
			defer f.Close()

			rows, issues, err := dataprocessing.ParseCSV(f)
			if err != nil {
				return fmt.Errorf("parse %s: %w", from, err)
			}
			printIssues(cmd.ErrOrStderr(), issues)

			ctx, cancel := opts.context(cmd)
			defer cancel()

			dsn := opts.dsn
			if dsn == "" {
				dsn = opts.file
			}
			src, err := source.OpenSQL(ctx, source.SQLOptions{
				Driver:       opts.driver,
				DSN:          dsn,
				Table:        opts.table,
				QueryTimeout: opts.timeout,
			}, opts.logger)
			if err != nil {
				return err
			}
			defer src.Close()

			if err := src.EnsureSchema(ctx); err != nil {
				return err
			}
			if err := src.Insert(ctx, rows); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), printer.Sprintf("Imported %d rows into %s", len(rows), opts.table))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "market price CSV to import (required)")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func readOperatorPrices(stderr io.Writer, path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	prices, issues, err := dataprocessing.ParseOperatorCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	printIssues(stderr, issues)

	if len(prices) == 0 {
		return nil, fmt.Errorf("%s has no usable prices", path)
	}
	return prices, nil
}

func writeComparison(out, format string, bom bool, opts *options, c domain.Comparison, market []domain.ProductSummary) (string, error) {
	// The CSV writer's SaveFile is reused for both formats; with nil paths it
	// writes relative names to the working directory.
	files := exporter.NewCSVWriter(bom, nil)

	write := func(w io.Writer) error { return files.WriteComparison(w, c) }
	if format == "xlsx" {
		xlsx := exporter.NewXLSXExporter(opts.logger)
		write = func(w io.Writer) error { return xlsx.WriteComparison(w, c, market) }
	}
	return files.SaveFile(out, write)
}
