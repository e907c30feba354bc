package websocket

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"fuelpulse/internal/config"
	"fuelpulse/internal/infrastructure"
)

// HandlerConfig configures the upgrade handler
type HandlerConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	ClientOptions   ClientOptions
}

// HandlerConfigFrom builds a HandlerConfig from application configuration
func HandlerConfigFrom(cfg *config.Config) HandlerConfig {
	return HandlerConfig{
		AllowedOrigins:  cfg.Security.AllowedOrigins,
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		ClientOptions: ClientOptions{
			PingPeriod: cfg.WebSocket.PingPeriod,
			PongWait:   cfg.WebSocket.PongWait,
		},
	}
}

// Handler upgrades HTTP requests and registers the resulting clients with
// the hub
type Handler struct {
	hub      *Hub
	cfg      HandlerConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates an upgrade handler for hub
func NewHandler(hub *Hub, cfg HandlerConfig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	h := &Handler{
		hub:    hub,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "websocket.handler")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			h.logger.WarnContext(r.Context(), "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			http.Error(w, http.StatusText(status), status)
		},
	}
	return h
}

// checkOrigin allows requests without an Origin header and those whose
// origin is configured
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if slices.Contains(h.cfg.AllowedOrigins, origin) {
		return true
	}

	h.logger.WarnContext(r.Context(), "WebSocket origin check - origin not allowed",
		slog.String("origin", origin),
		slog.Any("allowed_origins", h.cfg.AllowedOrigins))
	return false
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)
	if traceID == "" {
		traceID = r.Header.Get("X-Request-ID")
	}
	if traceID == "" {
		traceID = infrastructure.GenerateTraceID()
	}
	ctx = infrastructure.WithTraceID(ctx, traceID)

	h.logger.InfoContext(ctx, "WebSocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")),
		slog.String("user_agent", r.UserAgent()))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied
		return
	}

	opts := h.cfg.ClientOptions
	opts.TraceID = traceID
	client := NewClient(h.hub, NewConnection(conn), h.logger, opts)
	if !h.hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	h.logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))

	go h.pump(client, "write", client.WritePump)
	go h.pump(client, "read", client.ReadPump)
}

func (h *Handler) pump(client *Client, name string, run func()) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.ErrorContext(client.context(), "WebSocket pump panic",
				slog.String("pump", name),
				slog.Any("panic", rec),
				slog.String("client_id", client.ID()))
			client.conn.Close()
		}
	}()
	run()
}
