package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"fuelpulse/internal/operator"
	"fuelpulse/internal/source"
	"fuelpulse/pkg/contracts"
)

// DefaultReadinessTimeout bounds the source ping of a readiness check
const DefaultReadinessTimeout = 3 * time.Second

// ClientCounter reports connected dashboard clients
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	source    source.PriceSource
	store     operator.Store
	clients   ClientCounter
	startTime time.Time
	timeout   time.Duration
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// VersionResponse is the build information plus process uptime
type VersionResponse struct {
	contracts.VersionInfo
	UptimeSeconds float64   `json:"uptime_seconds"`
	StartTime     time.Time `json:"start_time"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	Source           string  `json:"source"`
	OperatorSheets   int     `json:"operator_sheets"`
	WebSocketClients int     `json:"websocket_clients"`
	Goroutines       int     `json:"goroutines"`
	GoVersion        string  `json:"go_version"`
	OS               string  `json:"os"`
	Arch             string  `json:"arch"`
}

// NewHealthService creates a health service. clients may be nil when no
// websocket hub is running.
func NewHealthService(src source.PriceSource, store operator.Store, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", contracts.Version),
		slog.String("source", src.Name()))

	return &HealthService{
		source:    src,
		store:     store,
		clients:   clients,
		startTime: time.Now(),
		timeout:   DefaultReadinessTimeout,
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   contracts.Version,
	}
}

// ReadinessCheck pings the price source and reports whether the service can
// answer market queries
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services: map[string]ServiceHealth{
			"source":    hs.checkSourceHealth(ctx),
			"websocket": hs.checkWebSocketHealth(),
		},
	}

	for name, service := range status.Services {
		if service.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "ReadinessCheck: dependency not ready",
				slog.String("service", name),
				slog.String("message", service.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() VersionResponse {
	return VersionResponse{
		VersionInfo:   contracts.GetVersionInfo(),
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		StartTime:     hs.startTime.UTC(),
	}
}

// SystemStats returns process statistics
func (hs *HealthService) SystemStats(ctx context.Context) SystemStats {
	stats := SystemStats{
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		Source:        hs.source.Name(),
		Goroutines:    runtime.NumGoroutine(),
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}
	if hs.store != nil {
		stats.OperatorSheets = len(hs.store.List())
	}
	if hs.clients != nil {
		stats.WebSocketClients = hs.clients.ClientCount()
	}
	return stats
}

func (hs *HealthService) checkSourceHealth(ctx context.Context) ServiceHealth {
	ctx, cancel := context.WithTimeout(ctx, hs.timeout)
	defer cancel()

	if err := hs.source.Ping(ctx); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("%s source unreachable: %v", hs.source.Name(), err),
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%s source is reachable", hs.source.Name()),
	}
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.clients == nil {
		return ServiceHealth{
			Status:  "ready",
			Message: "WebSocket hub disabled",
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("WebSocket hub serving %d clients", hs.clients.ClientCount()),
		Uptime:  time.Since(hs.startTime).String(),
	}
}
