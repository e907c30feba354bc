package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	err := New(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format")
	assert.Equal(t, "Invalid request format", err.Error())
	assert.Equal(t, "", (&APIError{}).Error())
}

func TestAPIError_Render(t *testing.T) {
	tests := []struct {
		name       string
		apiError   *APIError
		wantStatus int
	}{
		{"bad request", ErrInvalidRequest, http.StatusBadRequest},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"rate limited", ErrRateLimitExceeded, http.StatusTooManyRequests},
		{"unavailable", ErrServiceUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			require.NoError(t, render.Render(rec, req, tt.apiError))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.apiError.ErrorCode, body.ErrorCode)
		})
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{ErrInvalidRequest, http.StatusBadRequest, CodeInvalidRequest},
		{ErrValidationFailed, http.StatusBadRequest, CodeValidationFailed},
		{ErrMissingParameter, http.StatusBadRequest, CodeMissingParameter},
		{ErrInvalidParameter, http.StatusBadRequest, CodeInvalidParameter},
		{ErrUnsupportedFormat, http.StatusBadRequest, CodeUnsupportedFormat},
		{ErrNotFound, http.StatusNotFound, CodeNotFound},
		{ErrRateLimitExceeded, http.StatusTooManyRequests, CodeRateLimitExceeded},
		{ErrInternalServer, http.StatusInternalServerError, CodeInternal},
		{ErrWebSocketUpgrade, http.StatusInternalServerError, CodeWebSocketUpgrade},
		{ErrServiceUnavailable, http.StatusServiceUnavailable, CodeServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestInvalidRequestWithError(t *testing.T) {
	err := InvalidRequestWithError(errors.New("unexpected EOF"))

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, CodeInvalidRequest, err.ErrorCode)
	assert.Equal(t, "unexpected EOF", err.Details)
}

func TestInvalidParameter(t *testing.T) {
	err := InvalidParameter("from", errors.New(`parsing time "yesterday"`))

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, CodeInvalidParameter, err.ErrorCode)
	assert.Equal(t, `Invalid value for parameter "from"`, err.Message)
	assert.Equal(t, `parsing time "yesterday"`, err.Details)
}

func TestErrValidation(t *testing.T) {
	err := ErrValidation("station_id", "is required")

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, CodeValidationFailed, err.ErrorCode)
	assert.Equal(t, ValidationErrors{Errors: []ValidationError{{Field: "station_id", Message: "is required"}}}, err.Details)
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("Product")

	assert.Equal(t, http.StatusNotFound, err.StatusCode)
	assert.Equal(t, "Product not found", err.Message)
	assert.Equal(t, "Product", err.Details)
}

func TestNewValidationErrors(t *testing.T) {
	fields := []ValidationError{
		{Field: "prices", Message: "must not be empty"},
		{Field: "station_id", Message: "is required"},
	}

	err := NewValidationErrors(fields)

	details, ok := err.Details.(ValidationErrors)
	require.True(t, ok)
	assert.Equal(t, fields, details.Errors)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(rec, ErrRateLimitExceeded)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		Success bool     `json:"success"`
		Error   APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, CodeRateLimitExceeded, resp.Error.ErrorCode)
}

func TestAPIError_JSONSerialization(t *testing.T) {
	data, err := json.Marshal(New(http.StatusNotFound, CodeProductNotFound, "product kerosene not found"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status_code":404,"error_code":"PRODUCT_NOT_FOUND","message":"product kerosene not found"}`, string(data))
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", "/x").
		WithExtension("trace_id", "abc").
		WithExtension("status", 999)

	data, err := json.Marshal(problem)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"/errors/not-found","title":"Not Found","status":404,"instance":"/x","trace_id":"abc"}`, string(data))
}

func TestProblemDetails_WithExtensionOnZeroValue(t *testing.T) {
	var problem ProblemDetails
	problem.WithExtension("k", "v")
	assert.Equal(t, "v", problem.Extensions["k"])
}

func TestProblemDetails_Render(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	require.NoError(t, render.Render(rec, req, NewProblemDetails(http.StatusConflict, TypeConflict, "Conflict", "", "")))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Conflict"`)
}
