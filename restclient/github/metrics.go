package github

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

const scope = "github.com/kroma-labs/agnostic/restclient/github"

type metrics struct {
	pages         metric.Int64Counter
	rateLimitWait metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	var err error

	m.pages, err = meter.Int64Counter(
		"agnostic.github.pages",
		metric.WithDescription("Number of list pages fetched by paginated requests"),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, err
	}

	m.rateLimitWait, err = meter.Float64Histogram(
		"agnostic.github.ratelimit.wait",
		metric.WithDescription("Time spent waiting for the GitHub rate limit to reset in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metrics) recordPages(ctx context.Context, n int) {
	if m == nil || m.pages == nil {
		return
	}
	m.pages.Add(ctx, int64(n))
}

func (m *metrics) recordRateLimitWait(ctx context.Context, d time.Duration) {
	if m == nil || m.rateLimitWait == nil {
		return
	}
	m.rateLimitWait.Record(ctx, d.Seconds())
}
