package restclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Version is the library version advertised in the default user-agent.
const Version = "0.3.0"

// DefaultUserAgent is sent unless the connection or request sets one.
const DefaultUserAgent = "agnostic/" + Version

// Handler sends a prepared request and returns its decoded result.
type Handler func(ctx context.Context, req *Request) (*Result, error)

// Middleware wraps the handler behind Client.Do. It sees every prepared
// request, may send it any number of times through next, and may rewrite
// the result.
type Middleware func(next Handler) Handler

// Client sends requests to one REST API described by ConnectionProperties.
//
// Create a Client using New():
//
//	client, err := restclient.New(restclient.Connection("api.example.com"))
//	if err != nil {
//	    return err
//	}
//	res, err := client.Path("users", "octocat").Get(ctx)
//
// A Client is safe to share, but LastHeaders only describes whichever
// exchange finished last.
type Client struct {
	// httpClient is the underlying HTTP client with transport chain.
	httpClient *http.Client

	// config holds all client configuration.
	config *internalConfig

	// props describes the API.
	props *ConnectionProperties

	// defaultHeaders are built-in headers overlaid by the connection's.
	defaultHeaders Header

	codecs  *CodecRegistry
	handler Handler

	mu          sync.RWMutex
	lastHeaders http.Header
}

// New creates a Client for the API described by props.
func New(props *ConnectionProperties, opts ...Option) (*Client, error) {
	if props == nil {
		return nil, fmt.Errorf("%w: connection properties are required", ErrInvalidConfig)
	}
	if props.Host() == "" {
		return nil, fmt.Errorf("%w: %s is required", ErrInvalidConfig, PropHost)
	}

	cfg := newConfig(opts...)

	builtins := Header{"content-type": MediaTypeJSON}
	if cfg.UserAgent != "" {
		builtins.Set("user-agent", cfg.UserAgent)
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout:   cfg.httpConfig.Timeout,
			Transport: buildTransportChain(cfg),
		},
		config:         cfg,
		props:          props,
		defaultHeaders: props.Headers().WithDefaults(builtins),
		codecs:         NewCodecRegistry(),
	}
	for mediaType, codec := range cfg.Codecs {
		c.codecs.Register(mediaType, codec)
	}

	h := Handler(c.send)
	for i := len(cfg.Middlewares) - 1; i >= 0; i-- {
		h = cfg.Middlewares[i](h)
	}
	c.handler = h

	return c, nil
}

// buildTransportChain layers the transports:
// otel -> breaker -> retry -> throttle -> base.
func buildTransportChain(cfg *internalConfig) http.RoundTripper {
	var base http.RoundTripper = cfg.Transport
	if base == nil {
		base = cfg.buildTransport()
	}

	rt := newThrottleTransport(base, cfg)
	rt = newRetryTransport(rt, cfg)
	rt = newCircuitBreakerTransport(rt, cfg)
	return newOtelTransport(rt, cfg)
}

// HTTP returns the underlying *http.Client.
func (c *Client) HTTP() *http.Client {
	return c.httpClient
}

// Properties returns the connection properties of the client.
func (c *Client) Properties() *ConnectionProperties {
	return c.props
}

// Codecs returns the codec registry used for request and response bodies.
func (c *Client) Codecs() *CodecRegistry {
	return c.codecs
}

// LastHeaders returns the headers of the most recent response, or nil
// before the first one.
func (c *Client) LastHeaders() http.Header {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastHeaders.Clone()
}

func (c *Client) setLastHeaders(h http.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastHeaders = h.Clone()
}

// Path starts a request chain at the given segments.
func (c *Client) Path(keys ...any) *RequestBuilder {
	return NewRequestBuilder(c).Seg(keys...)
}

// Head sends a HEAD request.
func (c *Client) Head(ctx context.Context, path string, opts ...CallOption) (*Result, error) {
	return c.Do(ctx, NewRequest(MethodHead, path, opts...))
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string, opts ...CallOption) (*Result, error) {
	return c.Do(ctx, NewRequest(MethodGet, path, opts...))
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts ...CallOption) (*Result, error) {
	return c.Do(ctx, NewRequest(MethodDelete, path, opts...))
}

// Post sends a POST request. The content-type defaults to application/json.
func (c *Client) Post(ctx context.Context, path string, opts ...CallOption) (*Result, error) {
	return c.Do(ctx, NewRequest(MethodPost, path, opts...))
}

// Put sends a PUT request. The content-type defaults to application/json.
func (c *Client) Put(ctx context.Context, path string, opts ...CallOption) (*Result, error) {
	return c.Do(ctx, NewRequest(MethodPut, path, opts...))
}

// Patch sends a PATCH request. The content-type defaults to application/json.
func (c *Client) Patch(ctx context.Context, path string, opts ...CallOption) (*Result, error) {
	return c.Do(ctx, NewRequest(MethodPatch, path, opts...))
}

// Do prepares req and sends it through the middleware chain.
// req itself is not modified.
func (c *Client) Do(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidConfig)
	}
	if _, ok := methodNames[req.Method]; !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownMethod, req.Method)
	}
	prepared := c.prepare(req)
	if r, ok := prepared.Body.(io.Reader); ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		prepared.Body = rawBody(data)
	}
	return c.handler(ctx, prepared)
}

// rawBody holds an io.Reader body read ahead of the middleware chain, so
// a middleware that resends the request sends the same bytes. It is sent
// as is, without a codec.
type rawBody []byte

// prepare resolves headers, query string and path.
func (c *Client) prepare(req *Request) *Request {
	header := NewHeader(req.Header)
	if req.Method.HasBody() && !header.Has("content-type") {
		header.Set("content-type", MediaTypeJSON)
	}
	header = header.WithDefaults(c.defaultHeaders)
	if req.Body == nil {
		header.Del("content-type")
	}

	path := req.Path
	if isAbsoluteURL(path) {
		path = appendQuery(path, req.Query)
	} else {
		query := c.props.DefaultQuery()
		for k, vs := range req.Query {
			query[k] = append([]string(nil), vs...)
		}
		path = c.props.ConstructURL(appendQuery(path, query))
	}

	return &Request{
		Method: req.Method,
		Path:   path,
		Body:   req.Body,
		Header: header,
	}
}

// send performs a single exchange for a prepared request.
func (c *Client) send(ctx context.Context, req *Request) (*Result, error) {
	target := req.Path
	if !isAbsoluteURL(target) {
		target = c.props.BaseURL() + target
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse request URL: %w", err)
	}
	if u.Scheme != "https" && req.Header.Get("authorization") != "" {
		return nil, ErrInsecureAuthorization
	}

	var body []byte
	switch b := req.Body.(type) {
	case nil:
	case rawBody:
		body = b
	default:
		body, err = c.codecs.Encode(req.Body, req.Header.Get("content-type"))
		if err != nil {
			return nil, err
		}
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method.String(), target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header = req.Header.HTTP()

	for _, intercept := range c.config.Interceptors {
		if err := intercept(httpReq); err != nil {
			return nil, fmt.Errorf("request interceptor: %w", err)
		}
	}
	if httpReq.URL.Scheme != "https" && httpReq.Header.Get("Authorization") != "" {
		return nil, ErrInsecureAuthorization
	}

	var curl string
	if c.config.GenerateCurl {
		curl = generateCurlCommand(httpReq, body)
	}
	if c.config.Debug {
		logRequest(c.config.Logger, httpReq)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if c.config.Debug {
			logFailure(c.config.Logger, httpReq, err, time.Since(start))
		}
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	c.setLastHeaders(resp.Header)

	decoded, err := c.codecs.Decode(data, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	if c.config.Debug {
		logResponse(c.config.Logger, resp, len(data), decoded, time.Since(start))
	}

	return &Result{
		StatusCode:  resp.StatusCode,
		Header:      resp.Header.Clone(),
		Body:        decoded,
		curlCommand: curl,
	}, nil
}
