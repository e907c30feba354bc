package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "fuelpulse/internal/errors"
	"fuelpulse/internal/exporter"
	customMiddleware "fuelpulse/internal/middleware"
	api "fuelpulse/pkg/contracts/api/v1"
)

const dateLayout = "2006-01-02"

// MarketHandler serves the market views computed from distributor quotes
type MarketHandler struct {
	service      MarketServiceInterface
	clients      ClientCounter
	csv          *exporter.CSVWriter
	query        *customMiddleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewMarketHandler creates a market handler. clients may be nil.
func NewMarketHandler(service MarketServiceInterface, clients ClientCounter, csvWriter *exporter.CSVWriter, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *MarketHandler {
	return &MarketHandler{
		service:      service,
		clients:      clients,
		csv:          csvWriter,
		query:        customMiddleware.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "market_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the market routes, mounted at /api/market
func (h *MarketHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/summaries/export", h.ExportSummaries)

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/products", h.GetProducts)
		r.Get("/summaries", h.GetSummaries)
		r.Post("/refresh", h.Refresh)

		r.Route("/products/{product}", func(r chi.Router) {
			r.Use(h.ProductCtx)
			r.Get("/summary", h.GetSummary)
			r.Get("/distributors", h.GetDistributors)
			r.Get("/history", h.GetHistory)
		})
	})
	return r
}

// ProductCtx rejects a blank product path parameter
func (h *MarketHandler) ProductCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		product := chi.URLParam(r, "product")
		if product == "" || len(product) > 64 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("product", "Product must be 1 to 64 characters"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetProducts handles GET /api/market/products
func (h *MarketHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.Products(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.ProductsResponse{Products: products, Count: len(products)})
}

// GetSummary handles GET /api/market/products/{product}/summary
func (h *MarketHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	product := chi.URLParam(r, "product")
	distributors := h.query.ValidateList(r, "distributors")

	h.logger.DebugContext(r.Context(), "computing product summary",
		slog.String("request_id", customMiddleware.GetRequestID(r.Context())),
		slog.String("product", product),
		slog.Any("distributors", distributors))

	summary, err := h.service.Summary(r.Context(), product, distributors)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// GetDistributors handles GET /api/market/products/{product}/distributors
func (h *MarketHandler) GetDistributors(w http.ResponseWriter, r *http.Request) {
	product := chi.URLParam(r, "product")

	distributors, err := h.service.Distributors(r.Context(), product)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.DistributorsResponse{
		Product:      product,
		Distributors: distributors,
		Count:        len(distributors),
	})
}

// GetHistory handles GET /api/market/products/{product}/history
func (h *MarketHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	product := chi.URLParam(r, "product")

	from, ok := h.query.ValidateDate(w, r, "from")
	if !ok {
		return
	}
	to, ok := h.query.ValidateDate(w, r, "to")
	if !ok {
		return
	}

	days, err := h.service.History(r.Context(), product, from, to)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.HistoryResponse{
		Product: product,
		From:    formatDate(from),
		To:      formatDate(to),
		Days:    days,
	})
}

// GetSummaries handles GET /api/market/summaries
func (h *MarketHandler) GetSummaries(w http.ResponseWriter, r *http.Request) {
	distributors := h.query.ValidateList(r, "distributors")

	summaries, err := h.service.Summaries(r.Context(), distributors)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.SummariesResponse{
		Summaries:    summaries,
		Distributors: distributors,
		GeneratedAt:  time.Now().UTC(),
	})
}

// ExportSummaries handles GET /api/market/summaries/export
func (h *MarketHandler) ExportSummaries(w http.ResponseWriter, r *http.Request) {
	distributors := h.query.ValidateList(r, "distributors")

	summaries, err := h.service.Summaries(r.Context(), distributors)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.csv.WriteSummaries(&buf, summaries); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewExportError("write summaries csv", err))
		return
	}
	writeAttachment(w, exportFilename("market-summaries", time.Now().UTC(), FormatCSV), CSVContentType, buf.Bytes())
}

// Refresh handles POST /api/market/refresh
func (h *MarketHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.Refresh(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	clients := 0
	if h.clients != nil {
		clients = h.clients.ClientCount()
	}

	h.logger.InfoContext(r.Context(), "market refresh requested",
		slog.String("request_id", customMiddleware.GetRequestID(r.Context())),
		slog.Int("products", len(summaries)),
		slog.Int("clients", clients))

	render.JSON(w, r, api.RefreshResponse{
		Products:    len(summaries),
		Clients:     clients,
		RefreshedAt: time.Now().UTC(),
	})
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
