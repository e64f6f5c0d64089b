// Package restclient provides a schema-less REST client: any resource path
// can be reached by chaining segments and finishing with an HTTP verb,
// without generated bindings or response schemas.
//
// # Features
//
//   - Fluent path building with Seg / Index and a closed set of verbs
//   - Content-type driven body encoding and decoding (JSON built in)
//   - Case-insensitive header handling with connection-level defaults
//   - Refusal to send Authorization headers over plain HTTP
//   - OpenTelemetry tracing and metrics on every exchange
//   - Opt-in retries, circuit breaking and client-side throttling
//
// # Quick Start
//
// Describe the API with ConnectionProperties, then build paths on the client:
//
//	props := restclient.Connection("api.example.com",
//	    restclient.PathPrefix("/v2"),
//	    restclient.ExtraHeaders(map[string]string{"Accept": "application/json"}),
//	)
//	client, err := restclient.New(props)
//	if err != nil {
//	    return err
//	}
//
//	// GET /v2/repos/octocat/hello/issues?state=open
//	res, err := client.Path("repos", "octocat", "hello", "issues").
//	    Get(ctx, restclient.Query("state", "open"))
//
//	// POST /v2/repos/octocat/hello/issues/1/comments
//	res, err = client.Path("repos", "octocat", "hello", "issues").Index(1).Seg("comments").
//	    Post(ctx, restclient.Body(map[string]any{"body": "hello"}))
//
// Result.Body holds the decoded value: map[string]any or []any for JSON,
// string when a JSON body fails to parse, and []byte for any media type
// without a registered codec.
//
// # Codecs
//
// JSON is the only structured format registered by default. Others are
// added per client:
//
//	client, err := restclient.New(props,
//	    restclient.WithCodec("application/yaml", restclient.YAMLCodec),
//	)
//
// # Middleware
//
// Client.Do runs every request through the configured middleware chain
// before it reaches the network. The github subpackage uses this to add
// rate-limit back-off and pagination on top of the plain client.
//
// # Resilience
//
// None of these are enabled by default; a plain client sends each request
// exactly once.
//
//	client, err := restclient.New(props,
//	    restclient.WithRetryConfig(restclient.DefaultRetryConfig()),
//	    restclient.WithBreakerConfig(restclient.DefaultBreakerConfig()),
//	    restclient.WithThrottle(restclient.DefaultThrottleConfig()),
//	)
package restclient
