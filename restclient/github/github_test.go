package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/kroma-labs/agnostic/restclient"
)

// fakeClock replaces time.Now and time.Sleep. Sleeping advances the clock.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Sleep(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slept = append(f.slept, d)
	f.now = f.now.Add(d)
}

func (f *fakeClock) Slept() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.slept...)
}

// fakeAPI is a GitHub-like server with per-path response scripts.
type fakeAPI struct {
	srv *httptest.Server

	mu       sync.Mutex
	hits     map[string]int
	requests []*http.Request
}

type scripted struct {
	status    int
	body      string
	remaining string
	reset     int64
	next      string
}

func newFakeAPI(t *testing.T, routes map[string][]scripted) *fakeAPI {
	t.Helper()

	api := &fakeAPI{hits: make(map[string]int)}
	r := chi.NewRouter()
	for path, script := range routes {
		r.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
			api.mu.Lock()
			i := api.hits[path]
			api.hits[path]++
			api.requests = append(api.requests, req.Clone(context.Background()))
			api.mu.Unlock()

			if i >= len(script) {
				i = len(script) - 1
			}
			s := script[i]

			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			if s.remaining != "" {
				w.Header().Set(HeaderRateLimitRemaining, s.remaining)
				w.Header().Set(HeaderRateLimitReset, strconv.FormatInt(s.reset, 10))
			}
			if s.next != "" {
				w.Header().Set("Link", fmt.Sprintf(`<%s%s>; rel="next", <%s/last>; rel="last"`, api.srv.URL, s.next, api.srv.URL))
			}
			w.WriteHeader(s.status)
			_, _ = w.Write([]byte(s.body))
		})
	}
	api.srv = httptest.NewTLSServer(r)
	t.Cleanup(api.srv.Close)
	return api
}

func (a *fakeAPI) Hits(path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hits[path]
}

func (a *fakeAPI) Requests() []*http.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*http.Request(nil), a.requests...)
}

func (a *fakeAPI) options(clock *fakeClock) []Option {
	return []Option{
		WithAPIHost(a.srv.Listener.Addr().String()),
		WithClientOptions(restclient.WithTransport(a.srv.Client().Transport)),
		WithSleep(clock.Sleep),
		WithClock(clock.Now),
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		wantAuth string
		wantErr  error
	}{
		{
			name:     "given a token, then uses the token scheme",
			opts:     []Option{WithToken("abc")},
			wantAuth: "Token abc",
		},
		{
			name:     "given basic auth, then uses basic",
			opts:     []Option{WithBasicAuth("user", "pass")},
			wantAuth: "Basic dXNlcjpwYXNz",
		},
		{
			name: "given no credentials, then sends no authorization",
			opts: nil,
		},
		{
			name:    "given a token and a password, then returns ErrInvalidConfig",
			opts:    []Option{WithToken("abc"), WithBasicAuth("user", "pass")},
			wantErr: restclient.ErrInvalidConfig,
		},
		{
			name:    "given a password without a username, then returns ErrInvalidConfig",
			opts:    []Option{WithBasicAuth("", "pass")},
			wantErr: restclient.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.opts...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)

			props := c.Properties()
			assert.Equal(t, DefaultAPIHost, props.Host())
			assert.True(t, props.Secure())
			assert.Equal(t, MediaTypeV3, props.Headers().Get("accept"))
			assert.Equal(t, tt.wantAuth, props.Headers().Get("authorization"))
			assert.False(t, c.Paginating())
		})
	}
}

func TestClient_InsecureToken(t *testing.T) {
	mock := restclient.NewMockTransport().StubResponse(http.StatusOK, "")
	c, err := New(WithToken("abc"), WithInsecure(), WithClientOptions(restclient.WithMockTransport(mock)))
	require.NoError(t, err)

	_, err = c.Path("user").Get(context.Background())

	require.ErrorIs(t, err, restclient.ErrInsecureAuthorization)
	assert.Zero(t, mock.RequestCount())
}

func TestClient_Pagination(t *testing.T) {
	routes := map[string][]scripted{
		"/user/repos":  {{status: 200, body: `[{"id":1},{"id":2}]`, next: "/user/repos2"}},
		"/user/repos2": {{status: 200, body: `[{"id":3}]`, next: "/user/repos3"}},
		"/user/repos3": {{status: 200, body: `[{"id":4}]`}},
		"/user":        {{status: 200, body: `{"login":"octocat"}`, next: "/user/repos2"}},
		"/broken":      {{status: 200, body: `[1]`, next: "/object"}},
		"/object":      {{status: 404, body: `{"message":"Not Found"}`}},
	}

	tests := []struct {
		name      string
		paginate  bool
		path      string
		wantBody  any
		wantErr   error
		wantHits  map[string]int
		wantPages int64
	}{
		{
			name:     "given pagination disabled, then returns only the first page",
			paginate: false,
			path:     "/user/repos",
			wantBody: []any{map[string]any{"id": int64(1)}, map[string]any{"id": int64(2)}},
			wantHits: map[string]int{"/user/repos": 1, "/user/repos2": 0},
		},
		{
			name:     "given pagination enabled, then concatenates every page in order",
			paginate: true,
			path:     "/user/repos",
			wantBody: []any{
				map[string]any{"id": int64(1)},
				map[string]any{"id": int64(2)},
				map[string]any{"id": int64(3)},
				map[string]any{"id": int64(4)},
			},
			wantHits:  map[string]int{"/user/repos": 1, "/user/repos2": 1, "/user/repos3": 1},
			wantPages: 3,
		},
		{
			name:     "given an object response, then ignores the next link",
			paginate: true,
			path:     "/user",
			wantBody: map[string]any{"login": "octocat"},
			wantHits: map[string]int{"/user": 1, "/user/repos2": 0},
		},
		{
			name:     "given a continuation page that is not a list, then returns ErrPaginationInconsistent",
			paginate: true,
			path:     "/broken",
			wantErr:  ErrPaginationInconsistent,
			wantHits: map[string]int{"/broken": 1, "/object": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t, routes)
			reader := sdkmetric.NewManualReader()
			mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
			t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

			opts := append(api.options(newFakeClock()),
				WithPaginate(tt.paginate),
				WithToken("abc"),
				WithMeterProvider(mp),
			)
			c, err := New(opts...)
			require.NoError(t, err)

			res, err := c.Get(context.Background(), tt.path)

			for path, n := range tt.wantHits {
				assert.Equal(t, n, api.Hits(path), "hits on %s", path)
			}
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, res.StatusCode)
			assert.Equal(t, tt.wantBody, res.Body)

			for _, req := range api.Requests() {
				assert.Equal(t, "Token abc", req.Header.Get("Authorization"))
				assert.Equal(t, MediaTypeV3, req.Header.Get("Accept"))
			}

			if tt.wantPages > 0 {
				var rm metricdata.ResourceMetrics
				require.NoError(t, reader.Collect(context.Background(), &rm))
				assert.Equal(t, tt.wantPages, sumCounter(rm, "agnostic.github.pages"))
			}
		})
	}
}

func sumCounter(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestClient_RateLimit(t *testing.T) {
	clockStart := time.Unix(1_700_000_000, 0).Unix()

	tests := []struct {
		name       string
		routes     map[string][]scripted
		backoff    bool
		paginate   bool
		path       string
		wantStatus int
		wantErr    error
		wantSlept  []time.Duration
		wantHits   int
	}{
		{
			name: "given a rate-limited 403 then success, then waits for reset and retries",
			routes: map[string][]scripted{"/x": {
				{status: 403, body: `{"message":"API rate limit exceeded"}`, remaining: "0", reset: clockStart + 30},
				{status: 200, body: `{"ok":true}`, remaining: "4999", reset: clockStart + 3600},
			}},
			backoff:    true,
			path:       "/x",
			wantStatus: http.StatusOK,
			wantSlept:  []time.Duration{30 * time.Second},
			wantHits:   2,
		},
		{
			name: "given a reset already in the past, then retries without waiting",
			routes: map[string][]scripted{"/x": {
				{status: 403, body: `{}`, remaining: "0", reset: clockStart - 5},
				{status: 200, body: `{}`, remaining: "10", reset: clockStart + 3600},
			}},
			backoff:    true,
			path:       "/x",
			wantStatus: http.StatusOK,
			wantSlept:  []time.Duration{0},
			wantHits:   2,
		},
		{
			name: "given a permission 403 with quota left, then returns it without retry",
			routes: map[string][]scripted{"/x": {
				{status: 403, body: `{"message":"Forbidden"}`, remaining: "100", reset: clockStart + 60},
			}},
			backoff:    true,
			path:       "/x",
			wantStatus: http.StatusForbidden,
			wantHits:   1,
		},
		{
			name: "given a rate-limited 403 with backoff disabled, then returns it",
			routes: map[string][]scripted{"/x": {
				{status: 403, body: `{}`, remaining: "0", reset: clockStart + 30},
			}},
			backoff:    false,
			path:       "/x",
			wantStatus: http.StatusForbidden,
			wantHits:   1,
		},
		{
			name: "given a rate-limited continuation page with backoff disabled, then returns ErrRateLimitExceeded",
			routes: map[string][]scripted{
				"/list":  {{status: 200, body: `[1]`, remaining: "1", reset: clockStart + 30, next: "/list2"}},
				"/list2": {{status: 403, body: `{}`, remaining: "0", reset: clockStart + 30}},
			},
			backoff:  false,
			paginate: true,
			path:     "/list",
			wantErr:  ErrRateLimitExceeded,
			wantHits: 1,
		},
		{
			name: "given a rate-limited continuation page with backoff, then waits and completes",
			routes: map[string][]scripted{
				"/list": {{status: 200, body: `[1]`, remaining: "1", reset: clockStart + 30, next: "/list2"}},
				"/list2": {
					{status: 403, body: `{}`, remaining: "0", reset: clockStart + 20},
					{status: 200, body: `[2]`, remaining: "5000", reset: clockStart + 3600},
				},
			},
			backoff:    true,
			paginate:   true,
			path:       "/list",
			wantStatus: http.StatusOK,
			wantSlept:  []time.Duration{20 * time.Second},
			wantHits:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t, tt.routes)
			clock := newFakeClock()

			opts := append(api.options(clock),
				WithBackoffOnLimit(tt.backoff),
				WithPaginate(tt.paginate),
			)
			c, err := New(opts...)
			require.NoError(t, err)

			res, err := c.Get(context.Background(), tt.path)

			assert.Equal(t, tt.wantHits, api.Hits(tt.path))
			assert.Equal(t, tt.wantSlept, clock.Slept())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.StatusCode)
		})
	}
}

func TestClient_RateLimitGate(t *testing.T) {
	clock := newFakeClock()
	reset := clock.Now().Unix() + 45
	api := newFakeAPI(t, map[string][]scripted{
		"/first":  {{status: 200, body: `{}`, remaining: "0", reset: reset}},
		"/second": {{status: 200, body: `{}`, remaining: "4999", reset: reset + 3600}},
	})

	c, err := New(api.options(clock)...)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/first")
	require.NoError(t, err)
	assert.Empty(t, clock.Slept())
	assert.True(t, c.RateLimit().Exhausted())

	_, err = c.Path("second").Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{45 * time.Second}, clock.Slept())
	assert.Equal(t, 4999, c.RateLimit().Remaining)
}

func TestClient_RateLimitContextCanceled(t *testing.T) {
	clock := newFakeClock()
	api := newFakeAPI(t, map[string][]scripted{
		"/x": {{status: 403, body: `{}`, remaining: "0", reset: clock.Now().Unix() + 10}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := append(api.options(clock), WithSleep(func(d time.Duration) {
		clock.Sleep(d)
		cancel()
	}))
	c, err := New(opts...)
	require.NoError(t, err)

	_, err = c.Get(ctx, "/x")

	require.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, api.Hits("/x"), 2)
}

func TestClient_RateLimitRetryResendsBody(t *testing.T) {
	clock := newFakeClock()
	reset := clock.Now().Unix() + 5

	var (
		mu     sync.Mutex
		bodies []string
	)
	r := chi.NewRouter()
	r.Post("/repos/o/r/issues", func(w http.ResponseWriter, req *http.Request) {
		data, _ := io.ReadAll(req.Body)

		mu.Lock()
		bodies = append(bodies, string(data))
		first := len(bodies) == 1
		mu.Unlock()

		if first {
			w.Header().Set(HeaderRateLimitRemaining, "0")
			w.Header().Set(HeaderRateLimitReset, strconv.FormatInt(reset, 10))
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set(HeaderRateLimitRemaining, "4999")
		w.WriteHeader(http.StatusCreated)
	})
	srv := httptest.NewTLSServer(r)
	t.Cleanup(srv.Close)

	c, err := New(
		WithAPIHost(srv.Listener.Addr().String()),
		WithClientOptions(restclient.WithTransport(srv.Client().Transport)),
		WithSleep(clock.Sleep),
		WithClock(clock.Now),
	)
	require.NoError(t, err)

	res, err := c.Path("repos", "o", "r", "issues").Post(context.Background(),
		restclient.Body(strings.NewReader(`{"title":"x"}`)),
	)

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, []time.Duration{5 * time.Second}, clock.Slept())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{`{"title":"x"}`, `{"title":"x"}`}, bodies)
}
