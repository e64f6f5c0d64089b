package restclient

import (
	"net/url"
	"strings"
)

// Request is a fully described call: the verb, the path relative to the
// connection (or an absolute http(s) URL), an optional body, headers and
// query parameters.
//
// Requests reaching a Middleware have already been prepared: header names
// are lower-cased and merged with connection defaults, the query string is
// appended to Path and Path carries the connection prefix and postfix.
type Request struct {
	Method Method
	Path   string
	Body   any
	Header Header
	Query  url.Values
}

// CallOption customizes a single request.
type CallOption func(*Request)

// Body sets the request body. It is only sent for POST, PUT and PATCH.
// The body is encoded by the codec matching the request's content-type,
// except for an io.Reader, which is read once and sent as is.
func Body(v any) CallOption {
	return func(r *Request) {
		r.Body = v
	}
}

// WithHeader sets one request header. Explicit headers always win over
// connection defaults.
func WithHeader(name, value string) CallOption {
	return func(r *Request) {
		r.Header.Set(name, value)
	}
}

// WithHeaders sets several request headers.
func WithHeaders(h map[string]string) CallOption {
	return func(r *Request) {
		for k, v := range h {
			r.Header.Set(k, v)
		}
	}
}

// Query adds values for a query parameter.
func Query(key string, values ...string) CallOption {
	return func(r *Request) {
		for _, v := range values {
			r.Query.Add(key, v)
		}
	}
}

// QueryValues adds every parameter in q.
func QueryValues(q url.Values) CallOption {
	return func(r *Request) {
		for k, vs := range q {
			for _, v := range vs {
				r.Query.Add(k, v)
			}
		}
	}
}

// NewRequest builds a Request for method and path. Bodies given to verbs
// that do not carry one are discarded.
func NewRequest(method Method, path string, opts ...CallOption) *Request {
	req := &Request{
		Method: method,
		Path:   path,
		Header: Header{},
		Query:  url.Values{},
	}
	for _, opt := range opts {
		opt(req)
	}
	if !method.HasBody() {
		req.Body = nil
	}
	return req
}

// Clone returns a deep copy of the request headers and query with the
// same body value.
func (r *Request) Clone() *Request {
	out := *r
	out.Header = r.Header.Clone()
	out.Query = make(url.Values, len(r.Query))
	for k, vs := range r.Query {
		out.Query[k] = append([]string(nil), vs...)
	}
	return &out
}

// appendQuery appends the encoded query to path. An empty query leaves the
// path untouched.
func appendQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + q.Encode()
}

func isAbsoluteURL(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
