package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"fuelpulse/internal/dataprocessing"
	"fuelpulse/internal/infrastructure"
	"fuelpulse/internal/operator"
	"fuelpulse/internal/pricing"
	"fuelpulse/internal/source"
	"fuelpulse/pkg/contracts/domain"
	"fuelpulse/pkg/contracts/events"
)

// DefaultSummaryConcurrency bounds the per-product fan-out of Summaries
const DefaultSummaryConcurrency = 4

// PercentDecimals is the precision of PercentFromAverage
const PercentDecimals = 2

// Broadcaster pushes events to connected dashboards
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, messageType events.MessageType, data interface{})
}

// MarketService runs the pricing core over market snapshots and compares
// operator prices against them. Every call reads a fresh snapshot from the
// price source.
type MarketService struct {
	source      source.PriceSource
	store       operator.Store
	broadcaster Broadcaster
	metrics     *infrastructure.PricingMetrics
	logger      *slog.Logger
	tracer      trace.Tracer
	concurrency int
	now         func() time.Time
}

// MarketOption configures a MarketService
type MarketOption func(*MarketService)

// WithBroadcaster sets where comparison and refresh events are pushed
func WithBroadcaster(b Broadcaster) MarketOption {
	return func(s *MarketService) {
		s.broadcaster = b
	}
}

// WithMetrics sets the instruments calls are recorded on
func WithMetrics(m *infrastructure.PricingMetrics) MarketOption {
	return func(s *MarketService) {
		s.metrics = m
	}
}

// WithConcurrency bounds how many products Summaries computes at once.
// Values below 1 are ignored.
func WithConcurrency(n int) MarketOption {
	return func(s *MarketService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock overrides the time source used for GeneratedAt stamps
func WithClock(now func() time.Time) MarketOption {
	return func(s *MarketService) {
		s.now = now
	}
}

// NewMarketService creates a market service over src and store
func NewMarketService(src source.PriceSource, store operator.Store, logger *slog.Logger, opts ...MarketOption) *MarketService {
	if logger == nil {
		logger = slog.Default()
	}

	s := &MarketService{
		source:      src,
		store:       store,
		logger:      logger.With(slog.String("component", "market_service")),
		tracer:      otel.Tracer("fuelpulse.market"),
		concurrency: DefaultSummaryConcurrency,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.Info("MarketService initialized",
		slog.String("source", src.Name()),
		slog.Int("concurrency", s.concurrency),
		slog.Bool("broadcast", s.broadcaster != nil))
	return s
}

// begin starts a span for operation and returns the function that records
// its outcome
func (s *MarketService) begin(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "market."+operation, trace.WithAttributes(attrs...))
	start := time.Now()
	return ctx, func(err error) {
		s.metrics.RecordOperation(ctx, operation, time.Since(start), err)
		span.End()
	}
}

func (s *MarketService) load(ctx context.Context, q source.Query) ([]domain.PriceRow, error) {
	rows, err := s.source.Rows(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load market rows from %s: %w", s.source.Name(), err)
	}
	s.metrics.RecordRowsLoaded(ctx, s.source.Name(), len(rows))

	s.logger.DebugContext(ctx, "market rows loaded",
		slog.Int("rows", len(rows)),
		slog.Any("products", q.Products),
		slog.Any("distributors", q.Distributors))
	return rows, nil
}

func (s *MarketService) broadcast(ctx context.Context, messageType events.MessageType, data interface{}) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastEvent(ctx, messageType, data)
}

// Products returns the distinct products in the market data, sorted
func (s *MarketService) Products(ctx context.Context) (products []string, err error) {
	ctx, end := s.begin(ctx, "products")
	defer func() { end(err) }()

	rows, err := s.load(ctx, source.Query{})
	if err != nil {
		return nil, err
	}
	return dataprocessing.Products(rows), nil
}

// Distributors returns the distributors quoting product, sorted
func (s *MarketService) Distributors(ctx context.Context, product string) (distributors []string, err error) {
	product = dataprocessing.NormalizeIdentifier(product)
	ctx, end := s.begin(ctx, "distributors", attribute.String("product", product))
	defer func() { end(err) }()

	rows, err := s.load(ctx, source.Query{Products: []string{product}})
	if err != nil {
		return nil, err
	}

	distributors = dataprocessing.Distributors(rows, product)
	if len(distributors) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, product)
	}
	return distributors, nil
}

// Summary computes the market view of one product. A non-empty distributors
// list restricts the average, minimum and ranking to those distributors; a
// filter that excludes every quote yields an empty summary, not an error.
func (s *MarketService) Summary(ctx context.Context, product string, distributors []string) (summary domain.ProductSummary, err error) {
	product = dataprocessing.NormalizeIdentifier(product)
	ctx, end := s.begin(ctx, "summary",
		attribute.String("product", product),
		attribute.Int("distributor_filter", len(distributors)))
	defer func() { end(err) }()

	rows, err := s.load(ctx, source.Query{Products: []string{product}})
	if err != nil {
		return domain.ProductSummary{}, err
	}
	if len(rows) == 0 {
		return domain.ProductSummary{}, fmt.Errorf("%w: %s", ErrProductNotFound, product)
	}

	grouped := dataprocessing.GroupByProduct(rows, distributors)
	return summarize(product, grouped[product]), nil
}

// Summaries computes the summary of every product concurrently, ordered by
// product name
func (s *MarketService) Summaries(ctx context.Context, distributors []string) (summaries []domain.ProductSummary, err error) {
	ctx, end := s.begin(ctx, "summaries", attribute.Int("distributor_filter", len(distributors)))
	defer func() { end(err) }()

	rows, err := s.load(ctx, source.Query{})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoMarketData
	}

	grouped := dataprocessing.GroupByProduct(rows, distributors)
	products := dataprocessing.Products(rows)
	summaries = make([]domain.ProductSummary, len(products))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, product := range products {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			summaries[i] = summarize(product, grouped[product])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("summarize products: %w", err)
	}

	s.logger.DebugContext(ctx, "market summaries computed",
		slog.Int("products", len(summaries)),
		slog.Int("rows", len(rows)))
	return summaries, nil
}

// History returns the daily aggregates of product within [from, to]. Zero
// bounds are open.
func (s *MarketService) History(ctx context.Context, product string, from, to time.Time) (days []domain.DailySummary, err error) {
	product = dataprocessing.NormalizeIdentifier(product)
	ctx, end := s.begin(ctx, "history", attribute.String("product", product))
	defer func() { end(err) }()

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, fmt.Errorf("%w: from %s is after to %s", ErrInvalidDateRange,
			from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	rows, err := s.load(ctx, source.Query{Products: []string{product}})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, product)
	}

	return dataprocessing.BuildDailySummaries(dataprocessing.FilterByDate(rows, from, to), product), nil
}

// Refresh recomputes every product summary and announces them to dashboards
func (s *MarketService) Refresh(ctx context.Context) ([]domain.ProductSummary, error) {
	summaries, err := s.Summaries(ctx, nil)
	if err != nil {
		return nil, err
	}

	products := make([]string, len(summaries))
	for i, summary := range summaries {
		products[i] = summary.Product
	}
	s.broadcast(ctx, events.MessageTypeMarketRefreshed, events.MarketRefreshedData{
		Products:  products,
		Summaries: summaries,
	})

	s.logger.InfoContext(ctx, "market refreshed", slog.Int("products", len(products)))
	return summaries, nil
}

// OperatorPrices returns the saved price sheet of a station
func (s *MarketService) OperatorPrices(ctx context.Context, stationID string) (sheet domain.OperatorPriceSheet, err error) {
	_, end := s.begin(ctx, "operator_prices")
	defer func() { end(err) }()

	sheet, err = s.store.Get(stationID)
	if err != nil {
		return domain.OperatorPriceSheet{}, fmt.Errorf("get operator prices: %w", err)
	}
	return sheet, nil
}

// DeleteOperatorPrices removes the saved price sheet of a station
func (s *MarketService) DeleteOperatorPrices(ctx context.Context, stationID string) (err error) {
	ctx, end := s.begin(ctx, "delete_operator_prices")
	defer func() { end(err) }()

	if err := s.store.Delete(stationID); err != nil {
		return fmt.Errorf("delete operator prices: %w", err)
	}
	s.logger.InfoContext(ctx, "operator prices deleted",
		slog.String("station_id", dataprocessing.NormalizeIdentifier(stationID)))
	return nil
}

// SaveOperatorPrices validates and stores a station's prices, then returns
// the fresh comparison against the whole market and pushes it to dashboards
func (s *MarketService) SaveOperatorPrices(ctx context.Context, sheet domain.OperatorPriceSheet) (comparison domain.Comparison, err error) {
	ctx, end := s.begin(ctx, "save_operator_prices", attribute.Int("products", len(sheet.Prices)))
	defer func() { end(err) }()

	saved, err := s.store.Save(sheet)
	if err != nil {
		if errors.Is(err, operator.ErrInvalidSheet) {
			return domain.Comparison{}, fmt.Errorf("%w: %w", ErrInvalidOperatorPrice, err)
		}
		return domain.Comparison{}, fmt.Errorf("save operator prices: %w", err)
	}

	s.logger.InfoContext(ctx, "operator prices saved",
		slog.String("station_id", saved.StationID),
		slog.Int("products", len(saved.Prices)))

	comparison, _, err = s.compare(ctx, saved, nil)
	if err != nil {
		return domain.Comparison{}, err
	}

	s.broadcast(ctx, events.MessageTypeComparisonUpdated, events.ComparisonUpdatedData{
		StationID:  saved.StationID,
		Comparison: comparison,
	})
	return comparison, nil
}

// Compare compares a station's saved prices with the market, optionally
// restricted to a set of distributors
func (s *MarketService) Compare(ctx context.Context, stationID string, distributors []string) (comparison domain.Comparison, err error) {
	ctx, end := s.begin(ctx, "compare", attribute.Int("distributor_filter", len(distributors)))
	defer func() { end(err) }()

	sheet, err := s.store.Get(stationID)
	if err != nil {
		return domain.Comparison{}, fmt.Errorf("compare station %q: %w", stationID, err)
	}
	comparison, _, err = s.compare(ctx, sheet, distributors)
	return comparison, err
}

// CompareReport is Compare plus the market summary of every compared product
// that has market data, both computed from the same snapshot. Exports use it
// to list the rankings behind each MarketRank.
func (s *MarketService) CompareReport(ctx context.Context, stationID string, distributors []string) (comparison domain.Comparison, market []domain.ProductSummary, err error) {
	ctx, end := s.begin(ctx, "compare_report", attribute.Int("distributor_filter", len(distributors)))
	defer func() { end(err) }()

	sheet, err := s.store.Get(stationID)
	if err != nil {
		return domain.Comparison{}, nil, fmt.Errorf("compare station %q: %w", stationID, err)
	}

	comparison, grouped, err := s.compare(ctx, sheet, distributors)
	if err != nil {
		return domain.Comparison{}, nil, err
	}

	market = make([]domain.ProductSummary, 0, len(comparison.Products))
	for _, pc := range comparison.Products {
		if pc.MarketAvailable {
			market = append(market, summarize(pc.Product, grouped[pc.Product]))
		}
	}
	return comparison, market, nil
}

func (s *MarketService) compare(ctx context.Context, sheet domain.OperatorPriceSheet, distributors []string) (domain.Comparison, map[string]domain.ProductPriceMap, error) {
	products := make([]string, 0, len(sheet.Prices))
	for product := range sheet.Prices {
		products = append(products, product)
	}
	sort.Strings(products)

	rows, err := s.load(ctx, source.Query{Products: products})
	if err != nil {
		return domain.Comparison{}, nil, err
	}
	grouped := dataprocessing.GroupByProduct(rows, distributors)

	comparison := domain.Comparison{
		StationID:    sheet.StationID,
		Distributors: distributors,
		Products:     make([]domain.ProductComparison, 0, len(products)),
		GeneratedAt:  s.now(),
	}

	missing := 0
	for _, product := range products {
		pc := compareProduct(product, sheet.Prices[product], grouped[product])
		if !pc.MarketAvailable {
			missing++
		}
		comparison.Products = append(comparison.Products, pc)
	}

	s.metrics.RecordComparison(ctx, len(products))
	s.logger.DebugContext(ctx, "comparison generated",
		slog.String("station_id", sheet.StationID),
		slog.Int("products", len(products)),
		slog.Int("without_market", missing))
	return comparison, grouped, nil
}

func summarize(product string, prices domain.ProductPriceMap) domain.ProductSummary {
	ranking := pricing.DenseRank(prices)
	return domain.ProductSummary{
		Product:          product,
		AveragePrice:     pricing.TrimmedAverageOf(prices),
		Min:              pricing.MinPrice(prices),
		Ranking:          ranking,
		SampleCount:      len(ranking),
		DistributorCount: len(prices),
	}
}

// compareProduct places the operator's price in the market of one product.
// The operator is ranked by inserting its price under OperatorDistributorID
// next to the market quotes; RankedDistributors counts that entry too.
func compareProduct(product string, price float64, market domain.ProductPriceMap) domain.ProductComparison {
	pc := domain.ProductComparison{
		Product:       product,
		OperatorPrice: price,
		MarketMin:     pricing.MinPrice(market),
	}
	if !pc.MarketMin.HasData() {
		return pc
	}

	average := pricing.TrimmedAverageOf(market)
	pc.MarketAvailable = true
	pc.MarketAverage = average
	pc.DifferenceFromAverage = pricing.Round(price-average, pricing.PriceDecimals)
	if average != 0 {
		pc.PercentFromAverage = pricing.Round((price-average)/average*100, PercentDecimals)
	}

	withOperator := market.Filter(nil)
	withOperator[domain.OperatorDistributorID] = domain.Price(price)
	ranking := pricing.DenseRank(withOperator)
	pc.MarketRank = pricing.RankOf(ranking, domain.OperatorDistributorID)
	pc.RankedDistributors = len(ranking)
	return pc
}
