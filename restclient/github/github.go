package github

import (
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/kroma-labs/agnostic/restclient"
)

// API defaults.
const (
	DefaultAPIHost = "api.github.com"
	MediaTypeV3    = "application/vnd.github.v3+json"
)

// Client is a restclient.Client for the GitHub API. All of the embedded
// client's methods, including Path, go through the rate-limit gate and
// the pagination loop.
type Client struct {
	*restclient.Client

	paginate       bool
	backoffOnLimit bool
	sleep          func(time.Duration)
	now            func() time.Time
	logger         zerolog.Logger
	metrics        *metrics
}

type options struct {
	creds          restclient.Credentials
	apiHost        string
	insecure       bool
	paginate       bool
	backoffOnLimit bool
	sleep          func(time.Duration)
	now            func() time.Time
	logger         zerolog.Logger
	meterProvider  metric.MeterProvider
	clientOpts     []restclient.Option
}

// Option configures a Client.
type Option func(*options)

// WithBasicAuth authenticates with a username and password.
func WithBasicAuth(username, password string) Option {
	return func(o *options) {
		o.creds.Username = username
		o.creds.Password = password
	}
}

// WithToken authenticates with an OAuth or personal access token, sent as
// "Authorization: Token <token>".
func WithToken(token string) Option {
	return func(o *options) {
		o.creds.Token = token
	}
}

// WithPaginate makes list requests follow rel="next" links and return
// every page concatenated. Default: false.
func WithPaginate(enabled bool) Option {
	return func(o *options) {
		o.paginate = enabled
	}
}

// WithBackoffOnLimit toggles waiting for the rate limit to reset.
// When disabled, a rate-limited response is returned as is, and
// pagination stops with ErrRateLimitExceeded. Default: true.
func WithBackoffOnLimit(enabled bool) Option {
	return func(o *options) {
		o.backoffOnLimit = enabled
	}
}

// WithAPIHost targets a different API host. Default: api.github.com.
func WithAPIHost(host string) Option {
	return func(o *options) {
		o.apiHost = host
	}
}

// WithInsecure talks plain HTTP. Credentials are refused on such a client.
func WithInsecure() Option {
	return func(o *options) {
		o.insecure = true
	}
}

// WithSleep replaces time.Sleep for rate-limit waits.
func WithSleep(sleep func(time.Duration)) Option {
	return func(o *options) {
		o.sleep = sleep
	}
}

// WithClock replaces time.Now for rate-limit wait computation.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithLogger sets the logger for rate-limit and pagination events.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
		o.clientOpts = append(o.clientOpts, restclient.WithLogger(logger))
	}
}

// WithMeterProvider sets the MeterProvider for both this package's
// instruments and the underlying client's.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
		o.clientOpts = append(o.clientOpts, restclient.WithMeterProvider(mp))
	}
}

// WithClientOptions passes options to the underlying restclient.Client.
func WithClientOptions(opts ...restclient.Option) Option {
	return func(o *options) {
		o.clientOpts = append(o.clientOpts, opts...)
	}
}

// New creates a GitHub client. Credentials are validated here; see
// restclient.AuthHeader for the accepted combinations.
func New(opts ...Option) (*Client, error) {
	o := options{
		apiHost:        DefaultAPIHost,
		backoffOnLimit: true,
		sleep:          time.Sleep,
		now:            time.Now,
		logger:         zerolog.Nop(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	o.creds.TokenScheme = restclient.SchemeToken
	auth, err := restclient.AuthHeader(o.creds)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{"accept": MediaTypeV3}
	if auth != "" {
		headers["authorization"] = auth
	}
	connOpts := []restclient.ConnectionOption{restclient.ExtraHeaders(headers)}
	if o.insecure {
		connOpts = append(connOpts, restclient.Insecure())
	}

	gh := &Client{
		paginate:       o.paginate,
		backoffOnLimit: o.backoffOnLimit,
		sleep:          o.sleep,
		now:            o.now,
		logger:         o.logger,
	}
	gh.metrics, _ = newMetrics(o.meterProvider.Meter(scope))

	clientOpts := append([]restclient.Option{restclient.WithServiceName("github")}, o.clientOpts...)
	clientOpts = append(clientOpts, restclient.WithMiddleware(gh.middleware))

	rest, err := restclient.New(restclient.Connection(o.apiHost, connOpts...), clientOpts...)
	if err != nil {
		return nil, err
	}
	gh.Client = rest

	return gh, nil
}

// Paginating reports whether list responses are followed to the last page.
func (c *Client) Paginating() bool {
	return c.paginate
}
