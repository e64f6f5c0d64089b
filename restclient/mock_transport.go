package restclient

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
)

// MockResponse is a canned response served by MockTransport.
type MockResponse struct {
	StatusCode int
	Header     map[string]string
	Body       string
}

// JSONResponse is a MockResponse with an application/json body.
func JSONResponse(statusCode int, body string) MockResponse {
	return MockResponse{
		StatusCode: statusCode,
		Header:     map[string]string{"Content-Type": "application/json; charset=utf-8"},
		Body:       body,
	}
}

// RecordedRequest is a snapshot of a request seen by MockTransport,
// taken before the body was consumed.
type RecordedRequest struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte
}

// MockTransport is an http.RoundTripper serving canned responses, for
// tests of code built on Client:
//
//	mock := restclient.NewMockTransport().
//	    StubPath("/users/octocat", restclient.JSONResponse(200, `{"login":"octocat"}`))
//	client, err := restclient.New(props, restclient.WithMockTransport(mock))
//
// Stubs are matched in the order they were added. A stub with several
// responses serves them in turn and then repeats the last one.
type MockTransport struct {
	mu       sync.Mutex
	stubs    []*stub
	fallback *stub
	requests []RecordedRequest
}

type stub struct {
	matcher   func(*http.Request) bool
	responses []MockResponse
	err       error
	served    int
}

// NewMockTransport returns a MockTransport with no stubs.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// StubResponse serves a plain response to any request no other stub matches.
func (m *MockTransport) StubResponse(statusCode int, body string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = &stub{responses: []MockResponse{{StatusCode: statusCode, Body: body}}}
	return m
}

// StubError fails any request no other stub matches with err.
func (m *MockTransport) StubError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = &stub{err: err}
	return m
}

// StubPath serves responses to requests whose URL path equals path.
func (m *MockTransport) StubPath(path string, responses ...MockResponse) *MockTransport {
	return m.StubFunc(func(req *http.Request) bool {
		return req.URL.Path == path
	}, responses...)
}

// StubURL serves responses to requests for exactly rawURL.
func (m *MockTransport) StubURL(rawURL string, responses ...MockResponse) *MockTransport {
	return m.StubFunc(func(req *http.Request) bool {
		return req.URL.String() == rawURL
	}, responses...)
}

// StubFunc serves responses to requests matching the predicate.
func (m *MockTransport) StubFunc(matcher func(*http.Request) bool, responses ...MockResponse) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, &stub{matcher: matcher, responses: responses})
	return m
}

// StubFuncError fails requests matching the predicate with err.
func (m *MockTransport) StubFuncError(matcher func(*http.Request) bool, err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, &stub{matcher: matcher, err: err})
	return m
}

// RoundTrip implements http.RoundTripper.
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := RecordedRequest{
		Method: req.Method,
		URL:    req.URL,
		Header: req.Header.Clone(),
	}
	if req.Body != nil && req.Body != http.NoBody {
		data, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		rec.Body = data
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, rec)

	for _, s := range m.stubs {
		if s.matcher(req) {
			return s.serve(req)
		}
	}
	if m.fallback != nil {
		return m.fallback.serve(req)
	}

	return nil, errors.New("no stub found for request: " + req.Method + " " + req.URL.String())
}

func (s *stub) serve(req *http.Request) (*http.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return nil, errors.New("stub has no responses for " + req.URL.String())
	}

	i := s.served
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.served++

	mr := s.responses[i]
	header := make(http.Header, len(mr.Header))
	for k, v := range mr.Header {
		header.Set(k, v)
	}
	return &http.Response{
		StatusCode:    mr.StatusCode,
		Status:        http.StatusText(mr.StatusCode),
		Header:        header,
		Body:          io.NopCloser(bytes.NewBufferString(mr.Body)),
		ContentLength: int64(len(mr.Body)),
		Request:       req,
	}, nil
}

// Requests returns every request seen so far.
func (m *MockTransport) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// RequestCount returns the number of requests seen.
func (m *MockTransport) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request.
func (m *MockTransport) LastRequest() (RecordedRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return RecordedRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}

// Reset clears recorded requests and stubs.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.stubs = nil
	m.fallback = nil
}

// WithMockTransport sends every request through mock.
func WithMockTransport(mock *MockTransport) Option {
	return WithTransport(mock)
}
