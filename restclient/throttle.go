package restclient

import (
	"errors"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ThrottleConfig paces outgoing requests with a token bucket, keeping a
// client under an API's published request rate before the server starts
// rejecting it.
//
// Example - stay under 5000 requests per hour:
//
//	client, err := restclient.New(props,
//	    restclient.WithThrottle(restclient.ThrottleConfig{
//	        RequestsPerSecond: 5000.0 / 3600,
//	        Burst:             10,
//	        WaitOnLimit:       true,
//	    }),
//	)
type ThrottleConfig struct {
	// RequestsPerSecond is the sustained rate. Zero or less disables
	// throttling.
	RequestsPerSecond float64

	// Burst is the number of requests allowed at once. Minimum 1.
	Burst int

	// WaitOnLimit blocks until a token is available (bounded by the
	// request context). When false, requests over the rate fail with
	// ErrThrottled.
	WaitOnLimit bool
}

// DefaultThrottleConfig returns 10 requests per second, burst 5, waiting.
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		RequestsPerSecond: 10,
		Burst:             5,
		WaitOnLimit:       true,
	}
}

// ErrThrottled is returned when the client-side throttle rejects a request.
var ErrThrottled = errors.New("restclient: request throttled")

type throttleTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
	wait    bool
	cfg     *internalConfig
}

// newThrottleTransport returns next unchanged when throttling is off.
func newThrottleTransport(next http.RoundTripper, cfg *internalConfig) http.RoundTripper {
	tc := cfg.Throttle
	if tc.RequestsPerSecond <= 0 {
		return next
	}
	burst := tc.Burst
	if burst < 1 {
		burst = 1
	}
	return &throttleTransport{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(tc.RequestsPerSecond), burst),
		wait:    tc.WaitOnLimit,
		cfg:     cfg,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *throttleTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if !t.wait {
		if !t.limiter.Allow() {
			return nil, ErrThrottled
		}
		return t.next.RoundTrip(req)
	}

	start := time.Now()
	if err := t.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrThrottled
	}
	t.cfg.Metrics.recordThrottleWait(ctx, time.Since(start), t.cfg.baseAttributes())

	return t.next.RoundTrip(req)
}
