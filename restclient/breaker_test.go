package restclient

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type netError struct {
	msg string
}

func (e *netError) Error() string   { return e.msg }
func (e *netError) Timeout() bool   { return false }
func (e *netError) Temporary() bool { return false }

func TestDefaultBreakerConfig(t *testing.T) {
	cfg := DefaultBreakerConfig()

	assert.Equal(t, uint32(1), cfg.MaxRequests)
	assert.Equal(t, 10*time.Second, cfg.Interval)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, uint32(20), cfg.FailureThreshold)
	assert.InEpsilon(t, 0.5, cfg.FailureRatio, 0.001)
	assert.Equal(t, uint32(5), cfg.ConsecutiveFailures)
	assert.NotNil(t, cfg.Classifier)
	assert.Nil(t, cfg.Store)
}

func TestDefaultBreakerClassifier(t *testing.T) {
	tests := []struct {
		name string
		resp *http.Response
		err  error
		want bool
	}{
		{name: "given a network error, then counts as failure", err: &netError{msg: "dial"}, want: true},
		{name: "given a plain error, then does not count", err: errors.New("bad request body"), want: false},
		{name: "given 500, then counts as failure", resp: &http.Response{StatusCode: 500}, want: true},
		{name: "given 403, then does not count", resp: &http.Response{StatusCode: 403}, want: false},
		{name: "given 200, then does not count", resp: &http.Response{StatusCode: 200}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultBreakerClassifier(tt.resp, tt.err))
		})
	}
}

func TestCircuitBreakerTransport_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		mockFn    func(*roundTripperMock)
		attempts  int
		wantCalls int
		wantLast  func(t *testing.T, resp *http.Response, err error)
	}{
		{
			name: "given healthy responses, then passes them through",
			mockFn: func(rt *roundTripperMock) {
				rt.On("RoundTrip", mock.Anything).Return(textResponse(http.StatusOK, "OK"), nil)
			},
			attempts:  3,
			wantCalls: 3,
			wantLast: func(t *testing.T, resp *http.Response, err error) {
				require.NoError(t, err)
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			},
		},
		{
			name: "given a 500, then returns the response rather than an error",
			mockFn: func(rt *roundTripperMock) {
				rt.On("RoundTrip", mock.Anything).Return(textResponse(http.StatusInternalServerError, "boom"), nil)
			},
			attempts:  1,
			wantCalls: 1,
			wantLast: func(t *testing.T, resp *http.Response, err error) {
				require.NoError(t, err)
				assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			},
		},
		{
			name: "given consecutive 500s, then opens and rejects without calling the transport",
			mockFn: func(rt *roundTripperMock) {
				rt.On("RoundTrip", mock.Anything).Return(textResponse(http.StatusBadGateway, "boom"), nil)
			},
			attempts:  3,
			wantCalls: 2,
			wantLast: func(t *testing.T, resp *http.Response, err error) {
				require.ErrorIs(t, err, gobreaker.ErrOpenState)
				assert.Nil(t, resp)
			},
		},
		{
			name: "given consecutive 404s, then never opens",
			mockFn: func(rt *roundTripperMock) {
				rt.On("RoundTrip", mock.Anything).Return(textResponse(http.StatusNotFound, "missing"), nil)
			},
			attempts:  4,
			wantCalls: 4,
			wantLast: func(t *testing.T, resp *http.Response, err error) {
				require.NoError(t, err)
				assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &roundTripperMock{}
			tt.mockFn(base)

			bc := DefaultBreakerConfig()
			bc.ConsecutiveFailures = 2
			var transitions []gobreaker.State
			bc.OnStateChange = func(_ string, _, to gobreaker.State) {
				transitions = append(transitions, to)
			}

			rt := newCircuitBreakerTransport(base, newConfig(WithBreakerConfig(bc), WithServiceName("svc")))

			var (
				resp *http.Response
				err  error
			)
			for i := 0; i < tt.attempts; i++ {
				req, reqErr := http.NewRequest(http.MethodGet, "http://example.com", nil)
				require.NoError(t, reqErr)
				resp, err = rt.RoundTrip(req)
			}

			base.AssertNumberOfCalls(t, "RoundTrip", tt.wantCalls)
			tt.wantLast(t, resp, err)
			if errors.Is(err, gobreaker.ErrOpenState) {
				assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)
			}
		})
	}
}

func TestNewCircuitBreakerTransport(t *testing.T) {
	t.Run("given no breaker config, then returns next unchanged", func(t *testing.T) {
		base := &roundTripperMock{}

		assert.Same(t, base, newCircuitBreakerTransport(base, newConfig()))
	})

	t.Run("given a redis store, then uses a distributed breaker", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })

		base := &roundTripperMock{}
		base.On("RoundTrip", mock.Anything).Return(textResponse(http.StatusOK, "OK"), nil)

		cfg := DistributedBreakerConfig(NewRedisStore(rdb))
		rt := newCircuitBreakerTransport(base, newConfig(WithBreakerConfig(cfg)))

		cbt, ok := rt.(*circuitBreakerTransport)
		require.True(t, ok)
		_, distributed := cbt.breaker.(*gobreaker.DistributedCircuitBreaker[*http.Response])
		assert.True(t, distributed)
		assert.Equal(t, "agnostic-restclient", cbt.name)

		req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
		require.NoError(t, err)
		resp, err := rt.RoundTrip(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
