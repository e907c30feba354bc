package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "fuelpulse/internal/errors"
	customMiddleware "fuelpulse/internal/middleware"
	"fuelpulse/internal/pricing"
	api "fuelpulse/pkg/contracts/api/v1"
	"fuelpulse/pkg/contracts/domain"
)

// AnalyticsHandler exposes the pricing core on caller-supplied prices
type AnalyticsHandler struct {
	validator    *customMiddleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalyticsHandler creates an analytics handler
func NewAnalyticsHandler(validator *customMiddleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalyticsHandler {
	return &AnalyticsHandler{
		validator:    validator,
		logger:       logger.With(slog.String("component", "analytics_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the analytics routes, mounted at /api/analytics
func (h *AnalyticsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(h.validator.ValidateRequest)

	r.Post("/average", h.Average)
	r.Post("/rank", h.Rank)
	r.Post("/minimum", h.Minimum)
	return r
}

// Average handles POST /api/analytics/average
func (h *AnalyticsHandler) Average(w http.ResponseWriter, r *http.Request) {
	var req api.AverageRequest
	if !h.bind(w, r, &req) {
		return
	}

	values := req.Values()
	render.JSON(w, r, api.AverageResponse{
		Average:     pricing.TrimmedAverage(values),
		SampleCount: len(values),
	})
}

// Rank handles POST /api/analytics/rank
func (h *AnalyticsHandler) Rank(w http.ResponseWriter, r *http.Request) {
	var req api.PriceMapRequest
	if !h.bind(w, r, &req) {
		return
	}
	render.JSON(w, r, api.RankResponse{Ranking: pricing.DenseRank(domain.ProductPriceMap(req.Prices))})
}

// Minimum handles POST /api/analytics/minimum
func (h *AnalyticsHandler) Minimum(w http.ResponseWriter, r *http.Request) {
	var req api.PriceMapRequest
	if !h.bind(w, r, &req) {
		return
	}
	render.JSON(w, r, pricing.MinPrice(domain.ProductPriceMap(req.Prices)))
}

// bind decodes and validates the request body, answering with a problem on
// failure
func (h *AnalyticsHandler) bind(w http.ResponseWriter, r *http.Request, v render.Binder) bool {
	if err := render.Bind(r, v); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return false
	}
	if err := h.validator.ValidateStruct(v); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return false
	}
	return true
}
