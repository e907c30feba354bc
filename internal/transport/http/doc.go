// Package http implements the HTTP handlers of the FuelPulse API.
// Handlers stay thin: they parse and validate the request, call a service
// and render the result with go-chi/render.
//
// # Routes
//
//	/api/health       HealthHandler    liveness, readiness, stats
//	/api/market       MarketHandler    products, summaries, history, refresh
//	/api/analytics    AnalyticsHandler pricing core on posted prices
//	/api/operators    OperatorHandler  operator sheets, comparison, export
//
// # Error Handling
//
// Every failure is answered with RFC 7807 problem details through the
// ErrorHandler built by NewErrorHandler, which maps the service sentinel
// errors to their statuses:
//
//	{
//	    "type": "/errors/market/product-not-found",
//	    "title": "Product Not Found",
//	    "status": 404,
//	    "detail": "summary of \"kerosene\": product not found",
//	    "instance": "/api/market/products/kerosene/summary",
//	    "trace_id": "5f0c..."
//	}
package http
