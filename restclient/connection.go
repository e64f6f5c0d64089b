package restclient

import (
	"fmt"
	"net/url"
	"strings"
)

// Option names accepted by NewConnectionProperties and connection files.
const (
	PropHost         = "host"
	PropSecure       = "secure"
	PropPathPrefix   = "path_prefix"
	PropPathPostfix  = "path_postfix"
	PropExtraHeaders = "extra_headers"
	PropDefaultQuery = "default_query"
)

// ConnectionProperties describes how to reach one REST API: the host,
// whether to use TLS, a prefix and postfix wrapped around every path,
// headers sent with every request and query parameters merged into every
// query string.
//
// ConnectionProperties is immutable once built; accessors return copies.
type ConnectionProperties struct {
	host         string
	secure       bool
	pathPrefix   string
	pathPostfix  string
	headers      Header
	defaultQuery url.Values
}

// ConnectionOption customizes a ConnectionProperties built by Connection.
type ConnectionOption func(*ConnectionProperties)

// Connection describes an API reachable at host over HTTPS.
//
// Example:
//
//	props := restclient.Connection("api.bitbucket.org",
//	    restclient.PathPrefix("/2.0"),
//	)
func Connection(host string, opts ...ConnectionOption) *ConnectionProperties {
	p := &ConnectionProperties{
		host:         host,
		secure:       true,
		headers:      Header{},
		defaultQuery: url.Values{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Insecure makes the connection use plain HTTP.
func Insecure() ConnectionOption {
	return func(p *ConnectionProperties) {
		p.secure = false
	}
}

// PathPrefix is prepended to every request path.
func PathPrefix(prefix string) ConnectionOption {
	return func(p *ConnectionProperties) {
		p.pathPrefix = prefix
	}
}

// PathPostfix is appended to every request path, before any query string.
func PathPostfix(postfix string) ConnectionOption {
	return func(p *ConnectionProperties) {
		p.pathPostfix = postfix
	}
}

// ExtraHeaders adds headers sent with every request. Names are
// lower-cased and empty names are dropped.
func ExtraHeaders(h map[string]string) ConnectionOption {
	return func(p *ConnectionProperties) {
		for k, v := range h {
			p.headers.Set(k, v)
		}
	}
}

// DefaultQuery adds query parameters sent with every request.
// A parameter given explicitly on a request replaces its default.
func DefaultQuery(q url.Values) ConnectionOption {
	return func(p *ConnectionProperties) {
		for k, vs := range q {
			p.defaultQuery[k] = append([]string(nil), vs...)
		}
	}
}

// NewConnectionProperties builds connection properties from a loosely
// typed option map, as read from JSON, YAML or command line input.
// The accepted keys are host, secure, path_prefix, path_postfix,
// extra_headers and default_query. Unknown keys, values of the wrong type
// and a missing host fail with ErrInvalidConfig. secure defaults to true.
func NewConnectionProperties(opts map[string]any) (*ConnectionProperties, error) {
	p := Connection("")

	for key, val := range opts {
		switch key {
		case PropHost:
			s, err := stringProp(key, val)
			if err != nil {
				return nil, err
			}
			p.host = s
		case PropSecure:
			b, ok := val.(bool)
			if !ok {
				return nil, propTypeError(key, "bool", val)
			}
			p.secure = b
		case PropPathPrefix:
			s, err := stringProp(key, val)
			if err != nil {
				return nil, err
			}
			p.pathPrefix = s
		case PropPathPostfix:
			s, err := stringProp(key, val)
			if err != nil {
				return nil, err
			}
			p.pathPostfix = s
		case PropExtraHeaders:
			h, err := stringMapProp(key, val)
			if err != nil {
				return nil, err
			}
			ExtraHeaders(h)(p)
		case PropDefaultQuery:
			q, err := queryProp(key, val)
			if err != nil {
				return nil, err
			}
			DefaultQuery(q)(p)
		default:
			return nil, fmt.Errorf("%w: unknown connection property %q", ErrInvalidConfig, key)
		}
	}

	if p.host == "" {
		return nil, fmt.Errorf("%w: %s is required", ErrInvalidConfig, PropHost)
	}
	return p, nil
}

// Host returns the API host, optionally with a port.
func (p *ConnectionProperties) Host() string { return p.host }

// Secure reports whether requests use HTTPS.
func (p *ConnectionProperties) Secure() bool { return p.secure }

// PathPrefix returns the configured path prefix.
func (p *ConnectionProperties) PathPrefix() string { return p.pathPrefix }

// PathPostfix returns the configured path postfix.
func (p *ConnectionProperties) PathPostfix() string { return p.pathPostfix }

// Headers returns a copy of the default headers.
func (p *ConnectionProperties) Headers() Header { return p.headers.Clone() }

// DefaultQuery returns a copy of the default query parameters.
func (p *ConnectionProperties) DefaultQuery() url.Values {
	out := make(url.Values, len(p.defaultQuery))
	for k, vs := range p.defaultQuery {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// Scheme returns "https" or "http".
func (p *ConnectionProperties) Scheme() string {
	if p.secure {
		return "https"
	}
	return "http"
}

// BaseURL returns scheme://host.
func (p *ConnectionProperties) BaseURL() string {
	return p.Scheme() + "://" + p.host
}

// ConstructURL wraps path with the configured prefix and postfix.
// The postfix is inserted before the query string when path has one:
//
//	prefix "/v2", postfix "/ext", "/find/files?key=value"
//	=> "/v2/find/files/ext?key=value"
func (p *ConnectionProperties) ConstructURL(path string) string {
	if p.pathPostfix != "" {
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i] + p.pathPostfix + path[i:]
		} else {
			path += p.pathPostfix
		}
	}
	return p.pathPrefix + path
}

func stringProp(key string, val any) (string, error) {
	s, ok := val.(string)
	if !ok {
		return "", propTypeError(key, "string", val)
	}
	return s, nil
}

func stringMapProp(key string, val any) (map[string]string, error) {
	switch m := val.(type) {
	case map[string]string:
		return m, nil
	case Header:
		return m, nil
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, v := range m {
			s, ok := v.(string)
			if !ok {
				return nil, propTypeError(key+"."+k, "string", v)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, propTypeError(key, "map of strings", val)
	}
}

func queryProp(key string, val any) (url.Values, error) {
	if q, ok := val.(url.Values); ok {
		return q, nil
	}
	m, err := stringMapProp(key, val)
	if err != nil {
		return nil, err
	}
	q := make(url.Values, len(m))
	for k, v := range m {
		q.Set(k, v)
	}
	return q, nil
}

func propTypeError(key, want string, got any) error {
	return fmt.Errorf("%w: %s must be a %s, got %T", ErrInvalidConfig, key, want, got)
}
