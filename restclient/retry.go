package restclient

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig controls transport-level retries of failed exchanges.
//
// Retries are disabled unless a client is built with WithRetryConfig.
// They only replay an exchange the classifier accepts (network errors and
// 429/502/503/504 by default); API-level rate limiting, such as GitHub's
// 403 with an exhausted quota, is left to the caller or middleware.
//
// Example:
//
//	cfg := restclient.DefaultRetryConfig()
//	cfg.MaxRetries = 5
//	client, err := restclient.New(props, restclient.WithRetryConfig(cfg))
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	// Zero disables retries.
	MaxRetries uint

	// InitialInterval is the wait before the first retry.
	InitialInterval time.Duration

	// MaxInterval caps each wait.
	MaxInterval time.Duration

	// MaxElapsedTime bounds the whole retry sequence. Zero means no bound
	// beyond MaxRetries.
	MaxElapsedTime time.Duration

	// Multiplier grows the interval after each retry.
	Multiplier float64

	// JitterFactor randomizes each interval by ±JitterFactor.
	JitterFactor float64
}

// Default values for RetryConfig.
const (
	DefaultMaxRetries      = 3
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 30 * time.Second
	DefaultMaxElapsedTime  = 2 * time.Minute
	DefaultMultiplier      = 2.0
	DefaultJitterFactor    = 0.5
)

// DefaultRetryConfig returns 3 retries with exponential backoff
// (500ms, 1s, 2s) with 50% jitter and a 2 minute budget.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
		MaxElapsedTime:  DefaultMaxElapsedTime,
		Multiplier:      DefaultMultiplier,
		JitterFactor:    DefaultJitterFactor,
	}
}

// ConservativeRetryConfig returns 2 slower retries (1s, 2s) within 30s,
// for APIs with tight quotas.
func ConservativeRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: 1 * time.Second,
		MaxInterval:     10 * time.Second,
		MaxElapsedTime:  30 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.5,
	}
}

// NoRetryConfig disables retries. It is the client default.
func NoRetryConfig() RetryConfig {
	return RetryConfig{}
}

// IsEnabled reports whether retries are enabled.
func (c RetryConfig) IsEnabled() bool {
	return c.MaxRetries > 0
}

// ExponentialBackOffFromConfig creates the backoff strategy for cfg.
// Some jitter is always applied.
func ExponentialBackOffFromConfig(cfg RetryConfig) *backoff.ExponentialBackOff {
	jitter := cfg.JitterFactor
	if jitter <= 0 {
		jitter = DefaultJitterFactor
	}
	multiplier := cfg.Multiplier
	if multiplier < 1 {
		multiplier = DefaultMultiplier
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     cfg.InitialInterval,
		RandomizationFactor: jitter,
		Multiplier:          multiplier,
		MaxInterval:         cfg.MaxInterval,
	}
	b.Reset()
	return b
}
