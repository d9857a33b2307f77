package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "gridcli/internal/errors"
	"gridcli/internal/infrastructure"
	"gridcli/pkg/contracts/domain"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "generated", header: ""},
		{name: "propagated", header: "req-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen, trace string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetReqID(r.Context())
				trace = infrastructure.GetTraceID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.NotEmpty(t, seen)
			assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
			assert.Equal(t, seen, trace)
			if tt.header != "" {
				assert.Equal(t, tt.header, seen)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, nil)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "RATE_LIMITED")
}

func TestValidator_FeedRequest(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name   string
		req    domain.FeedRequest
		valid  bool
		fields []string
	}{
		{name: "current state", req: domain.FeedRequest{Type: domain.FeedCurrentState}, valid: true},
		{
			name:  "daily with inputs",
			req:   domain.FeedRequest{Type: domain.FeedDailyState, Inputs: []domain.WorkItem{{Key: "DL", Date: "2023-01-05"}}},
			valid: true,
		},
		{name: "unknown type", req: domain.FeedRequest{Type: "daily-plant-generation"}, fields: []string{"FeedRequest.type"}},
		{name: "daily without inputs", req: domain.FeedRequest{Type: domain.FeedDailyState}, fields: []string{"FeedRequest.inputs"}},
		{
			name:   "bad date",
			req:    domain.FeedRequest{Type: domain.FeedDailyState, Inputs: []domain.WorkItem{{Key: "DL", Date: "05-01-2023"}}},
			fields: []string{"FeedRequest.inputs[0].date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.req)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var apiErr *apierrors.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)

			details, ok := apiErr.Details.([]apierrors.ValidationError)
			require.True(t, ok)
			var fields []string
			for _, d := range details {
				fields = append(fields, d.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}
