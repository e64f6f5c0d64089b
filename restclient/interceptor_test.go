package restclient

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterceptors(t *testing.T) {
	tests := []struct {
		name        string
		interceptor RequestInterceptor
		preset      map[string]string
		check       func(t *testing.T, h http.Header)
		wantErr     bool
	}{
		{
			name:        "given no correlation id, then sets a UUID",
			interceptor: CorrelationIDInterceptor("X-Request-ID"),
			check: func(t *testing.T, h http.Header) {
				_, err := uuid.Parse(h.Get("X-Request-ID"))
				assert.NoError(t, err)
			},
		},
		{
			name:        "given an existing correlation id, then keeps it",
			interceptor: CorrelationIDInterceptor("X-Request-ID"),
			preset:      map[string]string{"X-Request-ID": "fixed"},
			check: func(t *testing.T, h http.Header) {
				assert.Equal(t, "fixed", h.Get("X-Request-ID"))
			},
		},
		{
			name: "given a token function, then sets the authorization header",
			interceptor: TokenInterceptor("Bearer", func() (string, error) {
				return "fresh", nil
			}),
			check: func(t *testing.T, h http.Header) {
				assert.Equal(t, "Bearer fresh", h.Get("Authorization"))
			},
		},
		{
			name: "given a failing token function, then aborts",
			interceptor: TokenInterceptor("Bearer", func() (string, error) {
				return "", errors.New("token expired")
			}),
			wantErr: true,
		},
		{
			name:        "given an api key, then sets the header",
			interceptor: APIKeyInterceptor("X-API-Key", "k"),
			check: func(t *testing.T, h http.Header) {
				assert.Equal(t, "k", h.Get("X-API-Key"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockTransport().StubResponse(http.StatusOK, "")
			client, err := New(Connection("api.example.com"),
				WithMockTransport(mock),
				WithRequestInterceptor(tt.interceptor),
			)
			require.NoError(t, err)

			_, err = client.Get(context.Background(), "/x", WithHeaders(tt.preset))
			if tt.wantErr {
				require.Error(t, err)
				assert.Zero(t, mock.RequestCount())
				return
			}
			require.NoError(t, err)

			req, ok := mock.LastRequest()
			require.True(t, ok)
			tt.check(t, req.Header)
		})
	}
}
