// Package services implements the business logic layer of FuelPulse.
// It sits between the HTTP handlers and the price sources, running the
// pricing core over fresh market snapshots.
//
// # Services
//
//	- MarketService: product summaries, distributor lists, daily history and
//	  operator comparisons, with comparison updates pushed to a Broadcaster
//	- HealthService: liveness, readiness (source reachability) and version
//
// # Common Service Pattern
//
// Services take their dependencies through the constructor and a logger
// tagged with a component name:
//
//	svc := services.NewMarketService(src, store, logger,
//	    services.WithBroadcaster(hub),
//	    services.WithMetrics(metrics),
//	)
//
// Every blocking method takes a context.Context and failures are returned as
// package sentinels wrapped with fmt.Errorf, so callers match them with
// errors.Is:
//
//	summary, err := svc.Summary(ctx, "diesel", nil)
//	if errors.Is(err, services.ErrProductNotFound) {
//	    // 404
//	}
package services
