package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(includeStack bool) *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), includeStack)
}

func serve(t *testing.T, fn func(w http.ResponseWriter, r *http.Request)) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/reports", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-1"))
	rec := httptest.NewRecorder()
	fn(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedType   string
		extensions     map[string]any
	}{
		{
			name:           "deadline",
			err:            fmt.Errorf("generate: %w", context.DeadlineExceeded),
			expectedStatus: http.StatusGatewayTimeout,
			expectedType:   TypeTimeout,
		},
		{
			name:           "cancelled",
			err:            context.Canceled,
			expectedStatus: http.StatusGatewayTimeout,
			expectedType:   TypeTimeout,
		},
		{
			name:           "missing upload",
			err:            MissingFile("ratings"),
			expectedStatus: http.StatusBadRequest,
			expectedType:   TypeValidation,
			extensions:     map[string]any{"error_code": "MISSING_PARAMETER"},
		},
		{
			name:           "payload too large",
			err:            ErrPayloadTooLarge,
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedType:   TypePayloadTooLarge,
		},
		{
			name:           "unsupported media type",
			err:            NewWithDetails(http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Unsupported content type", map[string]interface{}{"content_type": "application/json"}),
			expectedStatus: http.StatusUnsupportedMediaType,
			expectedType:   TypeUnsupportedMedia,
		},
		{
			name:           "rate limited",
			err:            ErrRateLimitExceeded,
			expectedStatus: http.StatusTooManyRequests,
			expectedType:   TypeRateLimit,
		},
		{
			name:           "header not found",
			err:            fmt.Errorf("load ratings: %w", &HeaderNotFoundError{File: "ratings.csv", Marker: "officer", Attempted: 16}),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedType:   TypeHeaderNotFound,
			extensions:     map[string]any{"file": "ratings.csv", "marker": "officer", "attempted_offsets": float64(16)},
		},
		{
			name:           "period not found",
			err:            &PeriodNotFoundError{Patterns: []string{"range", "as-at"}, Headers: 4},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedType:   TypePeriodNotFound,
		},
		{
			name:           "duplicate entity",
			err:            &DuplicateEntityError{Key: "jane doe", FirstRow: 1, SecondRow: 4},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedType:   TypeDuplicateEntity,
			extensions:     map[string]any{"key": "jane doe"},
		},
		{
			name:           "column collision",
			err:            &ColumnCollisionError{Canonical: "name", First: "Name", Second: "NAME "},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedType:   TypeColumnCollision,
		},
		{
			name:           "column not found",
			err:            &ColumnNotFoundError{Table: "roster.csv", Concept: "name"},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedType:   TypeColumnNotFound,
			extensions:     map[string]any{"concept": "name"},
		},
		{
			name:           "unknown",
			err:            io.ErrUnexpectedEOF,
			expectedStatus: http.StatusInternalServerError,
			expectedType:   TypeInternal,
		},
	}

	h := newHandler(false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := serve(t, func(w http.ResponseWriter, r *http.Request) {
				h.HandleError(w, r, tt.err)
			})

			assert.Equal(t, tt.expectedStatus, status)
			assert.Equal(t, tt.expectedType, body["type"])
			assert.Equal(t, float64(tt.expectedStatus), body["status"])
			assert.Equal(t, "/api/reports", body["instance"])
			assert.Equal(t, "req-1", body["trace_id"])
			assert.NotContains(t, body, "stack")
			for k, v := range tt.extensions {
				assert.Equal(t, v, body[k], k)
			}
		})
	}
}

func TestHandleErrorNil(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler(false).HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHandlePanic(t *testing.T) {
	status, body := serve(t, func(w http.ResponseWriter, r *http.Request) {
		newHandler(true).HandlePanic(w, r, "boom")
	})

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, TypeInternal, body["type"])
	assert.Equal(t, "boom", body["panic"])
	assert.NotEmpty(t, body["stack"])
}

func TestNotFound(t *testing.T) {
	status, body := serve(t, newHandler(false).NotFound)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, TypeNotFound, body["type"])
	assert.Equal(t, "req-1", body["trace_id"])
}

func TestValidationErrorsDetails(t *testing.T) {
	status, body := serve(t, func(w http.ResponseWriter, r *http.Request) {
		newHandler(false).HandleError(w, r, NewValidationErrors([]ValidationError{
			{Field: "roster.size", Message: "must not be empty"},
		}))
	})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
	details, ok := body["details"].([]any)
	require.True(t, ok)
	require.Len(t, details, 1)
	assert.Equal(t, "roster.size", details[0].(map[string]any)["field"])
}
