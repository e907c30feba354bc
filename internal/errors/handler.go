package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"fuelpulse/internal/infrastructure"
)

// Problem types
const (
	TypeValidation      = "/errors/validation"
	TypeInvalidRequest  = "/errors/invalid-request"
	TypeNotFound        = "/errors/not-found"
	TypeRateLimit       = "/errors/rate-limit"
	TypeInternal        = "/errors/internal"
	TypeServiceDown     = "/errors/service-unavailable"
	TypeTimeout         = "/errors/timeout"
	TypeConflict        = "/errors/conflict"
	TypePayloadTooLarge = "/errors/payload-too-large"
	TypeMethodNotAllow  = "/errors/method-not-allowed"
)

// Domain problem types
const (
	TypeProductNotFound   = "/errors/market/product-not-found"
	TypeNoMarketData      = "/errors/market/no-data"
	TypeSourceUnavailable = "/errors/market/source-unavailable"
	TypeInvalidMarketData = "/errors/market/invalid-data"
	TypeStationNotFound   = "/errors/operator/station-not-found"
	TypeInvalidPrice      = "/errors/operator/invalid-price"
	TypeUnsupportedFormat = "/errors/export/unsupported-format"
)

type sentinelMapping struct {
	target      error
	status      int
	problemType string
	title       string
}

// ErrorHandler turns errors into RFC 7807 responses
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
	mappings     []sentinelMapping
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// Register maps errors matching target (via errors.Is) to a problem response.
// Mappings are checked in registration order.
func (h *ErrorHandler) Register(target error, status int, problemType, title string) *ErrorHandler {
	h.mappings = append(h.mappings, sentinelMapping{
		target:      target,
		status:      status,
		problemType: problemType,
		title:       title,
	})
	return h
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	traceID := infrastructure.GetTraceID(r.Context())
	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", traceID)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
		if h.includeStack {
			problem.WithExtension("stack", string(debug.Stack()))
		}
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	_ = render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	instance := r.URL.Path

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			instance,
		)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErrorToProblem(apiErr, instance)
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeValidation,
			"Validation Failed",
			"One or more fields failed validation",
			instance,
		).WithExtension("errors", FromValidator(validationErrs))
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeInvalidRequest,
			"Invalid Request Body",
			err.Error(),
			instance,
		)
	}

	for _, m := range h.mappings {
		if errors.Is(err, m.target) {
			return NewProblemDetails(m.status, m.problemType, m.title, err.Error(), instance)
		}
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErrorToProblem(appErr, instance)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		instance,
	)
}

func apiErrorToProblem(apiErr *APIError, instance string) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case CodeValidationFailed:
		problemType = TypeValidation
	case CodeInvalidRequest, CodeMissingParameter, CodeInvalidParameter:
		problemType = TypeInvalidRequest
	case CodeNotFound:
		problemType = TypeNotFound
	case CodeProductNotFound:
		problemType = TypeProductNotFound
	case CodeStationNotFound:
		problemType = TypeStationNotFound
	case CodeNoMarketData:
		problemType = TypeNoMarketData
	case CodeUnsupportedFormat:
		problemType = TypeUnsupportedFormat
	case CodeRateLimitExceeded:
		problemType = TypeRateLimit
	case CodeServiceUnavailable:
		problemType = TypeServiceDown
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		instance,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

func appErrorToProblem(appErr *AppError, instance string) *ProblemDetails {
	switch appErr.Type {
	case ErrTypeValidation:
		return NewProblemDetails(http.StatusBadRequest, TypeValidation, "Validation Failed", appErr.Message, instance)
	case ErrTypeNotFound:
		return NewProblemDetails(http.StatusNotFound, TypeNotFound, "Resource Not Found", appErr.Message, instance)
	case ErrTypeSource:
		return NewProblemDetails(http.StatusServiceUnavailable, TypeSourceUnavailable,
			"Market Data Unavailable", appErr.Message, instance)
	case ErrTypeParsing:
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeInvalidMarketData,
			"Invalid Market Data", appErr.Message, instance)
	default:
		return NewProblemDetails(http.StatusInternalServerError, TypeInternal,
			"Internal Server Error", "An unexpected error occurred while processing your request", instance)
	}
}

// FromValidator converts validator errors into field messages
func FromValidator(errs validator.ValidationErrors) []ValidationError {
	out := make([]ValidationError, 0, len(errs))
	for _, fe := range errs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: validationMessage(fe),
		})
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// HandlePanic responds with a 500 problem after a recovered panic
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	traceID := infrastructure.GetTraceID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", traceID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
	}

	_ = render.Render(w, r, problem)
}

// NotFound returns a standard 404 problem
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context()))

	_ = render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 problem
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethodNotAllow,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context()))

	_ = render.Render(w, r, problem)
}
