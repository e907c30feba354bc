package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// HTTPMetrics holds the request instruments used by the HTTP middleware
type HTTPMetrics struct {
	RequestsTotal   metric.Int64Counter
	RequestDuration metric.Float64Histogram
	ActiveRequests  metric.Int64UpDownCounter
}

// PricingMetrics holds the market analytics instruments
type PricingMetrics struct {
	OperationsTotal      metric.Int64Counter
	OperationDuration    metric.Float64Histogram
	OperationErrors      metric.Int64Counter
	RowsLoaded           metric.Int64Counter
	ComparisonsGenerated metric.Int64Counter
	WebSocketClients     metric.Int64UpDownCounter
}

// CreateHTTPMetrics registers the HTTP instruments on meter
func CreateHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	requestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{
		RequestsTotal:   requestsTotal,
		RequestDuration: requestDuration,
		ActiveRequests:  activeRequests,
	}, nil
}

// CreatePricingMetrics registers the market analytics instruments on meter
func CreatePricingMetrics(meter metric.Meter) (*PricingMetrics, error) {
	operationsTotal, err := meter.Int64Counter(
		"pricing_operations_total",
		metric.WithDescription("Total number of market analytics operations"),
	)
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram(
		"pricing_operation_duration_seconds",
		metric.WithDescription("Market analytics operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	operationErrors, err := meter.Int64Counter(
		"pricing_operation_errors_total",
		metric.WithDescription("Total number of failed market analytics operations"),
	)
	if err != nil {
		return nil, err
	}

	rowsLoaded, err := meter.Int64Counter(
		"market_rows_loaded_total",
		metric.WithDescription("Total number of price rows read from the market source"),
	)
	if err != nil {
		return nil, err
	}

	comparisons, err := meter.Int64Counter(
		"operator_comparisons_total",
		metric.WithDescription("Total number of operator comparisons generated"),
	)
	if err != nil {
		return nil, err
	}

	wsClients, err := meter.Int64UpDownCounter(
		"websocket_clients",
		metric.WithDescription("Number of connected websocket clients"),
	)
	if err != nil {
		return nil, err
	}

	return &PricingMetrics{
		OperationsTotal:      operationsTotal,
		OperationDuration:    operationDuration,
		OperationErrors:      operationErrors,
		RowsLoaded:           rowsLoaded,
		ComparisonsGenerated: comparisons,
		WebSocketClients:     wsClients,
	}, nil
}

// NoopPricingMetrics returns instruments that record nothing
func NoopPricingMetrics() *PricingMetrics {
	m, _ := CreatePricingMetrics(noop.NewMeterProvider().Meter(MeterName))
	return m
}

// RecordOperation records one analytics call and its outcome
func (m *PricingMetrics) RecordOperation(ctx context.Context, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
	m.OperationsTotal.Add(ctx, 1, attrs)
	m.OperationDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.OperationErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
		RecordError(ctx, err)
	}
}

// RecordRowsLoaded counts rows read from a named source
func (m *PricingMetrics) RecordRowsLoaded(ctx context.Context, source string, rows int) {
	if m == nil {
		return
	}
	m.RowsLoaded.Add(ctx, int64(rows), metric.WithAttributes(attribute.String("source", source)))
}

// RecordComparison counts a generated operator comparison
func (m *PricingMetrics) RecordComparison(ctx context.Context, products int) {
	if m == nil {
		return
	}
	m.ComparisonsGenerated.Add(ctx, 1, metric.WithAttributes(attribute.Int("products", products)))
}

// RecordWebSocketClients tracks client connects (+1) and disconnects (-1)
func (m *PricingMetrics) RecordWebSocketClients(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.WebSocketClients.Add(ctx, delta)
}
