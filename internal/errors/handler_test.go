package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelpulse/internal/infrastructure"
	"fuelpulse/internal/shared/testutil"
)

var errTestProductMissing = errors.New("product not tracked")

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNewErrorHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	handler := NewErrorHandler(logger, true)
	assert.True(t, handler.includeStack)
	assert.NotNil(t, handler.logger)

	handler = NewErrorHandler(nil, false)
	assert.NotNil(t, handler.logger)
}

func TestErrorHandler_HandleError(t *testing.T) {
	type payload struct {
		StationID string `validate:"required"`
	}
	validationErr := validator.New().Struct(payload{})
	require.Error(t, validationErr)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantTitle  string
	}{
		{
			name:       "context deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantTitle:  "Request Timeout",
		},
		{
			name:       "wrapped context canceled",
			err:        fmt.Errorf("loading rows: %w", context.Canceled),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantTitle:  "Request Timeout",
		},
		{
			name:       "api error",
			err:        ErrInvalidRequest,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeInvalidRequest,
			wantTitle:  "Bad Request",
		},
		{
			name:       "api error with domain code",
			err:        New(http.StatusNotFound, CodeStationNotFound, "no sheet for station s1"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeStationNotFound,
			wantTitle:  "Not Found",
		},
		{
			name:       "validator errors",
			err:        validationErr,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantTitle:  "Validation Failed",
		},
		{
			name:       "json syntax error",
			err:        json.Unmarshal([]byte("{"), &struct{}{}),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeInvalidRequest,
			wantTitle:  "Invalid Request Body",
		},
		{
			name:       "registered sentinel",
			err:        fmt.Errorf("summary: %w", errTestProductMissing),
			wantStatus: http.StatusNotFound,
			wantType:   TypeProductNotFound,
			wantTitle:  "Product Not Found",
		},
		{
			name:       "source app error",
			err:        NewSourceError("reading prices", errors.New("connection refused")),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   TypeSourceUnavailable,
			wantTitle:  "Market Data Unavailable",
		},
		{
			name:       "validation app error",
			err:        NewAppValidationError("price must not be negative"),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantTitle:  "Validation Failed",
		},
		{
			name:       "not found app error",
			err:        NewNotFoundError("station"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
			wantTitle:  "Resource Not Found",
		},
		{
			name:       "unknown error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantTitle:  "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false).
				Register(errTestProductMissing, http.StatusNotFound, TypeProductNotFound, "Product Not Found")

			req := httptest.NewRequest(http.MethodGet, "/api/v1/market/summary", nil)
			req = req.WithContext(infrastructure.WithTraceID(req.Context(), "trace-123"))
			rec := httptest.NewRecorder()

			handler.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, tt.wantTitle, body["title"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, "/api/v1/market/summary", body["instance"])
			assert.Equal(t, "trace-123", body["trace_id"])
		})
	}
}

func TestErrorHandler_HandleError_Nil(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	rec := httptest.NewRecorder()

	NewErrorHandler(logger, false).HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, 0, rec.Body.Len())
	assert.Equal(t, 0, handler.Count())
}

func TestErrorHandler_LogLevels(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	handler.HandleError(httptest.NewRecorder(), req, ErrNotFound)
	handler.HandleError(httptest.NewRecorder(), req, errors.New("db down"))

	assert.Len(t, logs.GetRecordsByLevel(slog.LevelWarn), 1)
	assert.Len(t, logs.GetRecordsByLevel(slog.LevelError), 1)
	testutil.AssertLogAttr(t, logs, "error", "db down")
}

func TestErrorHandler_IncludeStack(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	rec := httptest.NewRecorder()
	NewErrorHandler(logger, true).HandleError(rec, req, errors.New("boom"))
	assert.Contains(t, decodeProblem(t, rec), "stack")

	rec = httptest.NewRecorder()
	NewErrorHandler(logger, false).HandleError(rec, req, errors.New("boom"))
	assert.NotContains(t, decodeProblem(t, rec), "stack")
}

func TestErrorToProblem_Details(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/operator/prices", nil)

	problem := handler.ErrorToProblem(ErrValidation("prices", "must not be empty"), req)

	assert.Equal(t, http.StatusBadRequest, problem.Status)
	assert.Equal(t, CodeValidationFailed, problem.Extensions["error_code"])
	details, ok := problem.Extensions["details"].(ValidationErrors)
	require.True(t, ok)
	assert.Equal(t, []ValidationError{{Field: "prices", Message: "must not be empty"}}, details.Errors)
}

func TestFromValidator(t *testing.T) {
	type request struct {
		Product string  `validate:"required"`
		Limit   int     `validate:"min=1"`
		Format  string  `validate:"oneof=csv xlsx"`
		Price   float64 `validate:"gte=0"`
	}

	err := validator.New().Struct(request{Limit: 0, Format: "pdf", Price: -1})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))

	got := FromValidator(verrs)
	assert.Equal(t, []ValidationError{
		{Field: "Product", Message: "is required"},
		{Field: "Limit", Message: "must be at least 1"},
		{Field: "Format", Message: "must be one of: csv xlsx"},
		{Field: "Price", Message: "must be greater than or equal to 0"},
	}, got)
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)

	NewErrorHandler(logger, true).HandlePanic(rec, req, "kaboom")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, TypeInternal, body["type"])
	assert.Equal(t, "kaboom", body["panic"])
	testutil.AssertLogContains(t, logs, slog.LevelError, "panic recovered")
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	rec := httptest.NewRecorder()
	handler.NotFound(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, TypeNotFound, decodeProblem(t, rec)["type"])

	rec = httptest.NewRecorder()
	handler.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, TypeMethodNotAllow, body["type"])
	assert.Contains(t, body["detail"], "DELETE")
}
