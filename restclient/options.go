package restclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/kroma-labs/agnostic/restclient"
)

// =============================================================================
// Config - HTTP Transport Configuration
// =============================================================================

// Config holds the HTTP transport settings of a Client.
// Use DefaultConfig() and modify the fields you need.
//
// Example:
//
//	cfg := restclient.DefaultConfig()
//	cfg.Timeout = 60 * time.Second
//
//	client, err := restclient.New(props, restclient.WithConfig(cfg))
type Config struct {
	// Timeout bounds a whole exchange, from dialing to reading the last
	// body byte. Pagination applies it to each page separately.
	//
	// Default: 30s
	Timeout time.Duration

	// DialTimeout bounds TCP connection establishment.
	//
	// Default: 10s
	DialTimeout time.Duration

	// KeepAlive is the TCP keep-alive probe interval.
	//
	// Default: 30s
	KeepAlive time.Duration

	// TLSHandshakeTimeout bounds the TLS handshake.
	//
	// Default: 10s
	TLSHandshakeTimeout time.Duration

	// ResponseHeaderTimeout bounds the wait for response headers once the
	// request is written. Zero leaves it to Timeout.
	//
	// Default: 0
	ResponseHeaderTimeout time.Duration

	// MaxIdleConnsPerHost caps idle keep-alive connections per host.
	//
	// Default: 4
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection is kept.
	//
	// Default: 90s
	IdleConnTimeout time.Duration

	// DisableKeepAlives opens a fresh connection for every request.
	//
	// Default: false
	DisableKeepAlives bool

	// DisableCompression stops net/http from requesting gzip and
	// transparently decompressing responses.
	//
	// Default: true
	DisableCompression bool
}

// DefaultConfig returns settings suited to calling public REST APIs,
// where responses can be slow and large list pages are common.
func DefaultConfig() Config {
	return Config{
		Timeout:             30 * time.Second,
		DialTimeout:         10 * time.Second,
		KeepAlive:           30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true,
	}
}

// LowLatencyConfig returns settings that fail fast, for interactive use
// such as the command line tool.
//
// Key differences from DefaultConfig:
//   - 10s overall timeout
//   - 3s dial and 5s response header timeouts
func LowLatencyConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = 10 * time.Second
	cfg.DialTimeout = 3 * time.Second
	cfg.TLSHandshakeTimeout = 5 * time.Second
	cfg.ResponseHeaderTimeout = 5 * time.Second
	return cfg
}

// ConservativeConfig returns settings for constrained environments:
// no idle connections are kept between requests.
func ConservativeConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = 60 * time.Second
	cfg.MaxIdleConnsPerHost = 0
	cfg.DisableKeepAlives = true
	return cfg
}

// =============================================================================
// Internal Configuration
// =============================================================================

// internalConfig holds the transport settings plus everything the client
// needs besides them: telemetry, logging, resilience and codecs.
type internalConfig struct {
	httpConfig Config

	// === OpenTelemetry ===

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Metrics        *metrics

	// ServiceName is added as "http.client.name" on spans and metrics and
	// names the circuit breaker.
	ServiceName string

	// === Network ===

	TLSConfig            *tls.Config
	ProxyURL             *url.URL
	ProxyFromEnvironment bool

	// Transport replaces the http.Transport built from httpConfig. The
	// resilience and telemetry layers still wrap it.
	Transport http.RoundTripper

	// === Logging ===

	Logger       zerolog.Logger
	Debug        bool
	GenerateCurl bool

	// === Requests ===

	UserAgent    string
	Middlewares  []Middleware
	Interceptors []RequestInterceptor
	Codecs       map[string]Codec

	// === Resilience ===

	RetryConfig     RetryConfig
	RetryClassifier RetryClassifier
	BreakerConfig   *BreakerConfig
	Throttle        ThrottleConfig
}

// newConfig creates a config with defaults and applies options.
func newConfig(opts ...Option) *internalConfig {
	cfg := &internalConfig{
		httpConfig:           DefaultConfig(),
		TracerProvider:       otel.GetTracerProvider(),
		MeterProvider:        otel.GetMeterProvider(),
		ProxyFromEnvironment: true,
		Logger:               debugLogger,
		UserAgent:            DefaultUserAgent,
		RetryConfig:          NoRetryConfig(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	cfg.Meter = cfg.MeterProvider.Meter(scope)

	// A nil metrics value is safe to record on.
	cfg.Metrics, _ = newMetrics(cfg.Meter)

	return cfg
}

// buildTransport creates an http.Transport from the configuration.
func (cfg *internalConfig) buildTransport() *http.Transport {
	hc := cfg.httpConfig

	dialer := &net.Dialer{
		Timeout:   hc.DialTimeout,
		KeepAlive: hc.KeepAlive,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConnsPerHost:   hc.MaxIdleConnsPerHost,
		IdleConnTimeout:       hc.IdleConnTimeout,
		TLSHandshakeTimeout:   hc.TLSHandshakeTimeout,
		ResponseHeaderTimeout: hc.ResponseHeaderTimeout,
		DisableKeepAlives:     hc.DisableKeepAlives,
		DisableCompression:    hc.DisableCompression,
		TLSClientConfig:       cfg.TLSConfig,
	}

	if cfg.ProxyURL != nil {
		transport.Proxy = http.ProxyURL(cfg.ProxyURL)
	} else if cfg.ProxyFromEnvironment {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return transport
}

// baseAttributes returns attributes shared by all spans and metrics.
func (cfg *internalConfig) baseAttributes() []attribute.KeyValue {
	if cfg.ServiceName == "" {
		return nil
	}
	return []attribute.KeyValue{attribute.String("http.client.name", cfg.ServiceName)}
}

// =============================================================================
// Options
// =============================================================================

// Option configures a Client.
type Option func(*internalConfig)

// WithConfig sets the HTTP transport configuration.
func WithConfig(c Config) Option {
	return func(cfg *internalConfig) {
		cfg.httpConfig = c
	}
}

// WithServiceName identifies this client in traces and metrics
// ("http.client.name") and names its circuit breaker.
func WithServiceName(name string) Option {
	return func(cfg *internalConfig) {
		cfg.ServiceName = name
	}
}

// WithTracerProvider sets the TracerProvider. Default: otel.GetTracerProvider().
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *internalConfig) {
		cfg.TracerProvider = tp
	}
}

// WithMeterProvider sets the MeterProvider. Default: otel.GetMeterProvider().
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *internalConfig) {
		cfg.MeterProvider = mp
	}
}

// WithTLSConfig sets the TLS configuration of the built transport.
//
// Example - trust a private CA:
//
//	pool := x509.NewCertPool()
//	pool.AppendCertsFromPEM(caPEM)
//	client, err := restclient.New(props,
//	    restclient.WithTLSConfig(&tls.Config{RootCAs: pool}),
//	)
func WithTLSConfig(tlsCfg *tls.Config) Option {
	return func(cfg *internalConfig) {
		cfg.TLSConfig = tlsCfg
	}
}

// WithProxyURL routes all requests through proxyURL, ignoring the
// proxy environment variables.
func WithProxyURL(proxyURL *url.URL) Option {
	return func(cfg *internalConfig) {
		cfg.ProxyURL = proxyURL
		cfg.ProxyFromEnvironment = false
	}
}

// WithProxyFromEnvironment toggles HTTP_PROXY / HTTPS_PROXY / NO_PROXY
// support. Default: true.
func WithProxyFromEnvironment(enabled bool) Option {
	return func(cfg *internalConfig) {
		cfg.ProxyFromEnvironment = enabled
	}
}

// WithTransport replaces the base transport. Use it to share a transport
// between clients or to reach test servers.
func WithTransport(rt http.RoundTripper) Option {
	return func(cfg *internalConfig) {
		cfg.Transport = rt
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *internalConfig) {
		cfg.Logger = logger
	}
}

// WithDebug logs every request and response at debug level.
func WithDebug(enabled bool) Option {
	return func(cfg *internalConfig) {
		cfg.Debug = enabled
	}
}

// WithGenerateCurl records a cURL reproduction of every request on its
// Result.
func WithGenerateCurl(enabled bool) Option {
	return func(cfg *internalConfig) {
		cfg.GenerateCurl = enabled
	}
}

// WithUserAgent replaces the default user-agent header. An explicit
// user-agent on the connection or request still wins.
func WithUserAgent(ua string) Option {
	return func(cfg *internalConfig) {
		cfg.UserAgent = ua
	}
}

// WithMiddleware appends middleware around Client.Do. The first
// middleware added is the outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(cfg *internalConfig) {
		cfg.Middlewares = append(cfg.Middlewares, mw...)
	}
}

// WithRequestInterceptor appends an interceptor run on every outgoing
// *http.Request after headers are set.
func WithRequestInterceptor(i RequestInterceptor) Option {
	return func(cfg *internalConfig) {
		cfg.Interceptors = append(cfg.Interceptors, i)
	}
}

// WithCodec registers c for mediaType, replacing the built-in codec when
// there is one.
func WithCodec(mediaType string, c Codec) Option {
	return func(cfg *internalConfig) {
		if cfg.Codecs == nil {
			cfg.Codecs = make(map[string]Codec)
		}
		cfg.Codecs[mediaType] = c
	}
}

// WithRetryConfig enables transport-level retries. Retries are off by
// default, so a failed exchange is reported to the caller as is.
func WithRetryConfig(rc RetryConfig) Option {
	return func(cfg *internalConfig) {
		cfg.RetryConfig = rc
	}
}

// WithRetryClassifier sets which failures are retried.
// Default: DefaultClassifier.
func WithRetryClassifier(c RetryClassifier) Option {
	return func(cfg *internalConfig) {
		cfg.RetryClassifier = c
	}
}

// WithBreakerConfig enables a circuit breaker in front of the transport.
func WithBreakerConfig(bc BreakerConfig) Option {
	return func(cfg *internalConfig) {
		cfg.BreakerConfig = &bc
	}
}

// WithThrottle enables client-side request throttling.
func WithThrottle(tc ThrottleConfig) Option {
	return func(cfg *internalConfig) {
		cfg.Throttle = tc
	}
}
