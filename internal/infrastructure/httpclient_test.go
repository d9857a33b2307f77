package infrastructure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gridcli/internal/errors"
)

func TestHTTPClient_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", len(r.URL.Path)-1)))
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientOptions{MaxBodyBytes: 10}, nil)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "under limit", path: "/123456789", wantErr: false},
		{name: "at limit", path: "/1234567890", wantErr: false},
		{name: "over limit", path: "/12345678901", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, status, err := c.Get(context.Background(), srv.URL+tt.path)
			assert.Equal(t, http.StatusOK, status)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, body)
				assert.Equal(t, apperrors.ErrTypeNetwork, apperrors.TypeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Len(t, body, len(tt.path)-1)
		})
	}
}

func TestHTTPClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, status, err := NewHTTPClient(HTTPClientOptions{}, nil).Get(context.Background(), srv.URL+"/dgr2-2023-01-05.xls")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	code, ok := apperrors.ContextValue(err, "response_code")
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, code)
}
