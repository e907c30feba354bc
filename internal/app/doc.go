// Package app wires the FuelPulse server together and runs it.
//
// # Initialization Flow
//
//	1. Load configuration from .env, environment and config.yaml
//	2. Resolve relative paths against the executable directory
//	3. Initialize logging and OpenTelemetry
//	4. Open the price source and create the operator store
//	5. Create the WebSocket hub, MarketService and HealthService
//	6. Build the chi router and the HTTP server
//
// NewApplication does all of the above from the environment. New starts at
// step 3 with a configuration the caller already holds, which is what tests
// use.
//
// # Routing
//
// /ws sits outside the main middleware group so the upgrade sees an
// unwrapped ResponseWriter. Everything else goes through
//
//	RequestID → RealIP → OTel → StructuredLogger → Recoverer → SecurityHeaders → CORS → RateLimit → Timeout
//
// and /metrics serves the Prometheus registry of the meter provider.
//
// # Graceful Shutdown
//
// Run blocks until SIGINT or SIGTERM, then Stop drains HTTP requests, closes
// dashboard connections, closes the price source and flushes telemetry.
// Nothing in this package calls os.Exit.
package app
