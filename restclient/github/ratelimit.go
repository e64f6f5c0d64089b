package github

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kroma-labs/agnostic/restclient"
)

// Rate limit headers sent by GitHub on every response.
const (
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// ErrRateLimitExceeded is returned when pagination hits an exhausted rate
// limit and waiting is disabled.
var ErrRateLimitExceeded = errors.New("github: rate limit exceeded")

// RateLimit is the quota state reported by one response.
type RateLimit struct {
	// Remaining is the number of requests left in the window.
	Remaining int
	// Reset is when the window resets.
	Reset time.Time
	// Known is false when the response carried no usable
	// X-RateLimit-Remaining header.
	Known bool
}

// ParseRateLimit reads the rate limit headers. A missing or malformed
// remaining count yields an unknown, never exhausted, RateLimit; a missing
// reset time reads as the Unix epoch.
func ParseRateLimit(h http.Header) RateLimit {
	var rl RateLimit

	if v := h.Get(HeaderRateLimitRemaining); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			rl.Remaining = n
			rl.Known = true
		}
	}

	var reset int64
	if v := h.Get(HeaderRateLimitReset); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			reset = n
		}
	}
	rl.Reset = time.Unix(reset, 0)

	return rl
}

// Exhausted reports a known quota of zero.
func (rl RateLimit) Exhausted() bool {
	return rl.Known && rl.Remaining == 0
}

// WaitDuration returns how long to wait from now until the reset,
// never negative. Sub-second precision is dropped, as the header is.
func (rl RateLimit) WaitDuration(now time.Time) time.Duration {
	wait := time.Duration(rl.Reset.Unix()-now.Unix()) * time.Second
	if wait < 0 {
		return 0
	}
	return wait
}

// RateLimit returns the quota state of the most recent response.
func (c *Client) RateLimit() RateLimit {
	return ParseRateLimit(c.LastHeaders())
}

// isRateLimited reports a 403 sent because the quota is exhausted.
// GitHub also uses 403 for permission errors, which carry remaining > 0.
func isRateLimited(res *restclient.Result) bool {
	return res.StatusCode == http.StatusForbidden && ParseRateLimit(res.Header).Exhausted()
}

// waitForReset blocks until the reset time of an exhausted quota.
// It does nothing when waiting is disabled or the quota is not exhausted.
func (c *Client) waitForReset(ctx context.Context, rl RateLimit) {
	if !c.backoffOnLimit || !rl.Exhausted() {
		return
	}

	wait := rl.WaitDuration(c.now())
	c.logger.Info().
		Dur("wait", wait).
		Time("reset", rl.Reset).
		Msg("github rate limit exhausted, waiting for reset")
	c.metrics.recordRateLimitWait(ctx, wait)
	c.sleep(wait)
}

// sendGated sends req once the known quota allows it, and resends it
// after waiting as long as GitHub answers with a rate-limit 403.
func (c *Client) sendGated(
	ctx context.Context,
	next restclient.Handler,
	req *restclient.Request,
) (*restclient.Result, error) {
	c.waitForReset(ctx, c.RateLimit())

	for {
		res, err := next(ctx, req)
		if err != nil {
			return nil, err
		}
		if !isRateLimited(res) || !c.backoffOnLimit {
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.waitForReset(ctx, ParseRateLimit(res.Header))
	}
}
