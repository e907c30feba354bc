package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "fuelpulse/internal/errors"
	"fuelpulse/internal/shared/testutil"
)

type priceSheetRequest struct {
	StationID string             `json:"station_id" validate:"required,identifier"`
	Prices    map[string]float64 `json:"prices" validate:"required,min=1,dive,keys,identifier,endkeys,price"`
	From      string             `json:"from" validate:"isodate"`
}

func newValidation(t *testing.T) *ValidationMiddleware {
	logger, _ := testutil.NewTestLogger(t)
	return NewValidationMiddleware(logger, apierrors.NewErrorHandler(logger, false))
}

func validationFields(t *testing.T, err error) []apierrors.ValidationError {
	t.Helper()
	var apiErr *apierrors.APIError
	require.True(t, errors.As(err, &apiErr))
	details, ok := apiErr.Details.(apierrors.ValidationErrors)
	require.True(t, ok)
	return details.Errors
}

func TestValidateStruct(t *testing.T) {
	v := newValidation(t)

	tests := []struct {
		name       string
		req        priceSheetRequest
		wantFields []string
	}{
		{
			name: "valid",
			req:  priceSheetRequest{StationID: "s1", Prices: map[string]float64{"diesel": 5.9}, From: "2025-03-14"},
		},
		{
			name:       "missing station",
			req:        priceSheetRequest{Prices: map[string]float64{"diesel": 5.9}},
			wantFields: []string{"station_id"},
		},
		{
			name:       "empty prices",
			req:        priceSheetRequest{StationID: "s1", Prices: map[string]float64{}},
			wantFields: []string{"prices"},
		},
		{
			name:       "negative price",
			req:        priceSheetRequest{StationID: "s1", Prices: map[string]float64{"diesel": -1}},
			wantFields: []string{"prices[diesel]"},
		},
		{
			name:       "non-finite price",
			req:        priceSheetRequest{StationID: "s1", Prices: map[string]float64{"diesel": math.Inf(1)}},
			wantFields: []string{"prices[diesel]"},
		},
		{
			name:       "blank product key",
			req:        priceSheetRequest{StationID: "s1", Prices: map[string]float64{"  ": 1}},
			wantFields: []string{"prices[  ]"},
		},
		{
			name:       "bad date",
			req:        priceSheetRequest{StationID: "s1", Prices: map[string]float64{"diesel": 1}, From: "14/03/2025"},
			wantFields: []string{"from"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.req)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}

			var got []string
			for _, f := range validationFields(t, err) {
				got = append(got, f.Field)
				assert.NotEmpty(t, f.Message)
			}
			assert.Equal(t, tt.wantFields, got)
		})
	}
}

func TestValidateStruct_Messages(t *testing.T) {
	v := newValidation(t)

	fields := validationFields(t, v.ValidateStruct(priceSheetRequest{
		StationID: "s1",
		Prices:    map[string]float64{"diesel": -2},
	}))

	require.Len(t, fields, 1)
	assert.Equal(t, "prices[diesel] must be a finite, non-negative price", fields[0].Message)
}

func TestValidateRequest(t *testing.T) {
	v := newValidation(t)

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen = string(body)
		w.WriteHeader(http.StatusNoContent)
	})
	h := v.ValidateRequest(next)

	t.Run("valid json passes through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"prices":{}}`)))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, `{"prices":{}}`, seen)
	})

	t.Run("invalid json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"prices":`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, apierrors.CodeInvalidRequest, body["error_code"])
	})

	t.Run("oversized body", func(t *testing.T) {
		big := `{"x":"` + strings.Repeat("a", DefaultMaxBodySize) + `"}`
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big)))

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("get skips body checks", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestContentTypeValidator(t *testing.T) {
	h := ContentTypeValidator("application/json")(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPut, "/", strings.NewReader("a,b"))
	req.Header.Set("Content-Type", "text/csv")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQueryParamValidator(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	q := NewQueryParamValidator(logger, apierrors.NewErrorHandler(logger, false))

	t.Run("enum", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?format=XLSX", nil)
		got, ok := q.ValidateEnum(httptest.NewRecorder(), req, "format", []string{"csv", "xlsx"}, "csv")
		assert.True(t, ok)
		assert.Equal(t, "xlsx", got)

		got, ok = q.ValidateEnum(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), "format", []string{"csv", "xlsx"}, "csv")
		assert.True(t, ok)
		assert.Equal(t, "csv", got)

		rec := httptest.NewRecorder()
		_, ok = q.ValidateEnum(rec, httptest.NewRequest(http.MethodGet, "/?format=pdf", nil), "format", []string{"csv", "xlsx"}, "csv")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("date", func(t *testing.T) {
		got, ok := q.ValidateDate(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?from=2025-03-14", nil), "from")
		assert.True(t, ok)
		assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), got)

		got, ok = q.ValidateDate(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), "from")
		assert.True(t, ok)
		assert.True(t, got.IsZero())

		rec := httptest.NewRecorder()
		_, ok = q.ValidateDate(rec, httptest.NewRequest(http.MethodGet, "/?from=yesterday", nil), "from")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?distributors=alpha,%20bravo,,", nil)
		assert.Equal(t, []string{"alpha", "bravo"}, q.ValidateList(req, "distributors"))
		assert.Nil(t, q.ValidateList(httptest.NewRequest(http.MethodGet, "/", nil), "distributors"))
	})
}
