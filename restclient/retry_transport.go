package restclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// retryTransport replays exchanges accepted by its classifier.
type retryTransport struct {
	base       http.RoundTripper
	cfg        *internalConfig
	classifier RetryClassifier
}

// retryableStatusError carries a retryable status through the backoff
// loop; it never reaches the caller.
type retryableStatusError struct {
	statusCode int
}

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("retryable status %d", e.statusCode)
}

// newRetryTransport returns base unchanged when retries are disabled.
func newRetryTransport(base http.RoundTripper, cfg *internalConfig) http.RoundTripper {
	if !cfg.RetryConfig.IsEnabled() {
		return base
	}

	classifier := cfg.RetryClassifier
	if classifier == nil {
		classifier = DefaultClassifier
	}

	return &retryTransport{
		base:       base,
		cfg:        cfg,
		classifier: classifier,
	}
}

// RoundTrip implements http.RoundTripper. When every attempt ends in a
// retryable status, the last response is returned rather than an error.
func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	cfg := t.cfg.RetryConfig
	span := trace.SpanFromContext(ctx)

	var bodyBytes []byte
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
	}

	var (
		attempt  int
		lastResp *http.Response
	)

	opts := []backoff.RetryOption{
		backoff.WithBackOff(ExponentialBackOffFromConfig(cfg)),
		backoff.WithMaxTries(cfg.MaxRetries + 1),
		backoff.WithNotify(func(err error, next time.Duration) {
			attempt++
			t.recordRetryEvent(span, attempt, err, next)
			t.cfg.Metrics.recordRetryAttempt(ctx, t.cfg.baseAttributes(), attempt)
		}),
	}
	if cfg.MaxElapsedTime > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(cfg.MaxElapsedTime))
	}

	resp, err := backoff.Retry(ctx, func() (*http.Response, error) {
		resp, err := t.base.RoundTrip(cloneRequest(req, bodyBytes))

		if !t.classifier(resp, err) {
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			return resp, nil
		}

		if err != nil {
			return nil, err
		}

		// Keep a replayable copy so the final attempt can be returned.
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}
		resp.Body = io.NopCloser(bytes.NewReader(data))
		lastResp = resp
		return nil, &retryableStatusError{statusCode: resp.StatusCode}
	}, opts...)

	if attempt > 0 {
		span.SetAttributes(
			attribute.Int("http.retry_count", attempt),
			attribute.Bool("http.retry_success", err == nil),
		)
	}

	if err != nil {
		t.cfg.Metrics.recordRetryExhausted(ctx, t.cfg.baseAttributes())
		var statusErr *retryableStatusError
		if errors.As(err, &statusErr) && lastResp != nil {
			return lastResp, nil
		}
		return nil, err
	}
	return resp, nil
}

// cloneRequest copies req with a fresh body for one attempt.
func cloneRequest(req *http.Request, bodyBytes []byte) *http.Request {
	clone := req.Clone(req.Context())

	if bodyBytes != nil {
		clone.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		clone.ContentLength = int64(len(bodyBytes))
	} else if req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			clone.Body = body
		}
	}

	return clone
}

func (t *retryTransport) recordRetryEvent(
	span trace.Span,
	attempt int,
	err error,
	nextDelay time.Duration,
) {
	if !span.IsRecording() {
		return
	}

	reason := "unknown"
	var statusErr *retryableStatusError
	switch {
	case errors.As(err, &statusErr):
		reason = fmt.Sprintf("status_%d", statusErr.statusCode)
	case isRetryableNetworkError(err):
		reason = "network_error"
	}

	span.AddEvent("http.retry", trace.WithAttributes(
		attribute.Int("retry.attempt", attempt),
		attribute.Int64("retry.delay_ms", nextDelay.Milliseconds()),
		attribute.String("retry.reason", reason),
	))
}
