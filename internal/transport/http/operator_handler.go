package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "fuelpulse/internal/errors"
	"fuelpulse/internal/exporter"
	customMiddleware "fuelpulse/internal/middleware"
	api "fuelpulse/pkg/contracts/api/v1"
	"fuelpulse/pkg/contracts/domain"
)

// Export formats of the comparison download
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// CSVContentType is the media type of CSV downloads
const CSVContentType = "text/csv; charset=utf-8"

// OperatorHandler manages operator price sheets and their comparison with
// the market
type OperatorHandler struct {
	service      OperatorServiceInterface
	csv          *exporter.CSVWriter
	xlsx         *exporter.XLSXExporter
	validator    *customMiddleware.ValidationMiddleware
	query        *customMiddleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewOperatorHandler creates an operator handler
func NewOperatorHandler(
	service OperatorServiceInterface,
	csvWriter *exporter.CSVWriter,
	xlsx *exporter.XLSXExporter,
	validator *customMiddleware.ValidationMiddleware,
	logger *slog.Logger,
	errorHandler *apierrors.ErrorHandler,
) *OperatorHandler {
	return &OperatorHandler{
		service:      service,
		csv:          csvWriter,
		xlsx:         xlsx,
		validator:    validator,
		query:        customMiddleware.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "operator_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the operator routes, mounted at /api/operators
func (h *OperatorHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/{station}", func(r chi.Router) {
		r.Use(h.StationCtx)

		r.Group(func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.With(h.validator.ValidateRequest).Put("/prices", h.SavePrices)
			r.Get("/prices", h.GetPrices)
			r.Delete("/prices", h.DeletePrices)
			r.Get("/comparison", h.GetComparison)
		})
		r.Get("/comparison/export", h.ExportComparison)
	})
	return r
}

// StationCtx validates the station path parameter
func (h *OperatorHandler) StationCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		station := chi.URLParam(r, "station")
		if station == "" || len(station) > 64 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("station", "Station id must be 1 to 64 characters"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SavePrices handles PUT /api/operators/{station}/prices
func (h *OperatorHandler) SavePrices(w http.ResponseWriter, r *http.Request) {
	station := chi.URLParam(r, "station")

	var req api.OperatorPricesRequest
	if err := render.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	comparison, err := h.service.SaveOperatorPrices(r.Context(), domain.OperatorPriceSheet{
		StationID: station,
		Prices:    req.Prices,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	sheet, err := h.service.OperatorPrices(r.Context(), station)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "operator prices updated",
		slog.String("request_id", customMiddleware.GetRequestID(r.Context())),
		slog.String("station_id", sheet.StationID),
		slog.Int("products", len(sheet.Prices)))

	render.JSON(w, r, api.OperatorPricesResponse{Sheet: sheet, Comparison: &comparison})
}

// GetPrices handles GET /api/operators/{station}/prices
func (h *OperatorHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.service.OperatorPrices(r.Context(), chi.URLParam(r, "station"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.OperatorPricesResponse{Sheet: sheet})
}

// DeletePrices handles DELETE /api/operators/{station}/prices
func (h *OperatorHandler) DeletePrices(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteOperatorPrices(r.Context(), chi.URLParam(r, "station")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// GetComparison handles GET /api/operators/{station}/comparison
func (h *OperatorHandler) GetComparison(w http.ResponseWriter, r *http.Request) {
	distributors := h.query.ValidateList(r, "distributors")

	comparison, err := h.service.Compare(r.Context(), chi.URLParam(r, "station"), distributors)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, comparison)
}

// ExportComparison handles GET /api/operators/{station}/comparison/export.
// The file is built in memory so failures still produce a problem response.
func (h *OperatorHandler) ExportComparison(w http.ResponseWriter, r *http.Request) {
	station := chi.URLParam(r, "station")

	format, ok := h.query.ValidateEnum(w, r, "format", []string{FormatCSV, FormatXLSX}, FormatCSV)
	if !ok {
		return
	}
	distributors := h.query.ValidateList(r, "distributors")

	var (
		buf         bytes.Buffer
		contentType string
		comparison  domain.Comparison
	)
	switch format {
	case FormatXLSX:
		c, market, err := h.service.CompareReport(r.Context(), station, distributors)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		if err := h.xlsx.WriteComparison(&buf, c, market); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.NewExportError("build comparison workbook", err))
			return
		}
		comparison, contentType = c, exporter.XLSXContentType
	default:
		c, err := h.service.Compare(r.Context(), station, distributors)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		if err := h.csv.WriteComparison(&buf, c); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.NewExportError("write comparison csv", err))
			return
		}
		comparison, contentType = c, CSVContentType
	}

	filename := exportFilename("comparison-"+comparison.StationID, comparison.GeneratedAt, format)
	h.logger.InfoContext(r.Context(), "comparison exported",
		slog.String("request_id", customMiddleware.GetRequestID(r.Context())),
		slog.String("station_id", comparison.StationID),
		slog.String("format", format),
		slog.Int("bytes", buf.Len()))

	writeAttachment(w, filename, contentType, buf.Bytes())
}

func exportFilename(prefix string, at time.Time, ext string) string {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return fmt.Sprintf("%s-%s.%s", prefix, at.Format("20060102"), ext)
}

func writeAttachment(w http.ResponseWriter, filename, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	// Non-ASCII station ids are sent in the RFC 2231 filename* form.
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if disposition == "" {
		disposition = "attachment"
	}
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
