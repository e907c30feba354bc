package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"

	"fuelpulse/internal/config"
	"fuelpulse/internal/exporter"
	"fuelpulse/internal/infrastructure"
	customMiddleware "fuelpulse/internal/middleware"
	"fuelpulse/internal/operator"
	"fuelpulse/internal/services"
	"fuelpulse/internal/source"
	handlers "fuelpulse/internal/transport/http"
	ws "fuelpulse/internal/websocket"
	"fuelpulse/pkg/contracts"
)

// AppName is the name reported in startup logs
const AppName = "FuelPulse"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Source        source.PriceSource
	Store         operator.Store
	WebSocketHub  *ws.Hub
	MarketService *services.MarketService
	HealthService *services.HealthService
}

// NewApplication loads the configuration, resolves it against the
// executable directory and builds the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	cfg.ResolvePaths(paths)

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, paths, logger)
}

// New builds the application from an already loaded configuration. It opens
// the price source, so callers own the returned application and must Stop it.
func New(cfg *config.Config, paths *config.Paths, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("source_driver", cfg.Source.Driver))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(); err != nil {
		_ = otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices opens the price source and wires the services
func (a *Application) initializeServices() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Source.QueryTimeout)
	defer cancel()

	src, err := source.New(ctx, a.Config.Source, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open price source: %w", err)
	}
	a.Source = src
	a.Store = operator.NewMemoryStore()

	metrics, err := infrastructure.CreatePricingMetrics(a.OTelProviders.Meter)
	if err != nil {
		src.Close()
		return fmt.Errorf("failed to create pricing metrics: %w", err)
	}

	a.WebSocketHub = ws.NewHub(a.Logger, metrics)
	a.MarketService = services.NewMarketService(src, a.Store, a.Logger,
		services.WithBroadcaster(a.WebSocketHub),
		services.WithMetrics(metrics),
		services.WithConcurrency(a.Config.Analytics.SummaryConcurrency),
	)
	a.HealthService = services.NewHealthService(src, a.Store, a.WebSocketHub, a.Logger)

	a.Logger.Info("Services initialized",
		slog.String("source", src.Name()),
		slog.Int("summary_concurrency", a.Config.Analytics.SummaryConcurrency))
	return nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// These do not wrap the ResponseWriter, so the WebSocket upgrade still works
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	wsHandler := ws.NewHandler(a.WebSocketHub, ws.HandlerConfigFrom(a.Config), a.Logger)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).Handle("/ws", wsHandler)

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

func (a *Application) setupAPIRoutes(r chi.Router) {
	errorHandler := handlers.NewErrorHandler(a.Logger, a.Config.Logging.Development)
	validator := customMiddleware.NewValidationMiddleware(a.Logger, errorHandler)
	csvWriter := exporter.NewCSVWriter(a.Config.Export.CSVIncludeBOM, a.Paths)
	xlsx := exporter.NewXLSXExporter(a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		marketHandler := handlers.NewMarketHandler(a.MarketService, a.WebSocketHub, csvWriter, a.Logger, errorHandler)
		r.Mount("/market", marketHandler.Routes())

		analyticsHandler := handlers.NewAnalyticsHandler(validator, a.Logger, errorHandler)
		r.Mount("/analytics", analyticsHandler.Routes())

		operatorHandler := handlers.NewOperatorHandler(a.MarketService, csvWriter, xlsx, validator, a.Logger, errorHandler)
		r.Mount("/operators", operatorHandler.Routes())
	})
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins:   a.Config.Security.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", customMiddleware.RequestIDHeader},
		ExposedHeaders:   []string{customMiddleware.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the hub and the HTTP server. A listener failure cancels ctx
// through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.WebSocketHub.Start()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.WebSocketHub.Stop()

	if err := a.Source.Close(); err != nil {
		a.Logger.ErrorContext(ctx, "Error closing price source", slog.String("error", err.Error()))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped unexpectedly")
	}

	// ctx may already be cancelled, the shutdown gets a fresh one
	return a.Stop(context.Background())
}

// performStartupHealthCheck reports problems that do not stop the server:
// an unreachable price source and unwritable directories
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	if err := a.Source.Ping(ctx); err != nil {
		warnings = append(warnings, fmt.Sprintf("price source %s unavailable: %v", a.Source.Name(), err))
	}

	if a.Paths != nil {
		directories := map[string]string{
			"Data":    a.Paths.DataDir,
			"Exports": a.Paths.ExportsDir,
			"Logs":    a.Paths.LogsDir,
		}
		for name, dir := range directories {
			testFile := filepath.Join(dir, ".write_test")
			if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
				warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
				continue
			}
			os.Remove(testFile)
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
