package restclient

import (
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
)

// Result is the outcome of one exchange: the status code, the response
// headers and the body decoded according to the response content type.
// Non-2xx statuses are results, not errors.
type Result struct {
	StatusCode int
	Header     http.Header
	// Body is map[string]any or []any for JSON documents, string for text
	// that failed to parse, and []byte for media types without a codec.
	Body any

	curlCommand string
}

// IsSuccess reports a 2xx status.
func (r *Result) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsError reports a 4xx or 5xx status.
func (r *Result) IsError() bool {
	return r.StatusCode >= 400
}

// CurlCommand returns a cURL reproduction of the request when the client
// was built with WithGenerateCurl(true).
func (r *Result) CurlCommand() string {
	return r.curlCommand
}

// List returns the body as a JSON array.
func (r *Result) List() ([]any, bool) {
	l, ok := r.Body.([]any)
	return l, ok
}

// Object returns the body as a JSON object.
func (r *Result) Object() (map[string]any, bool) {
	m, ok := r.Body.(map[string]any)
	return m, ok
}

// Bytes returns the body when it was left undecoded.
func (r *Result) Bytes() ([]byte, bool) {
	b, ok := r.Body.([]byte)
	return b, ok
}

// Text returns the body when it is a string, such as JSON that failed to
// parse.
func (r *Result) Text() (string, bool) {
	s, ok := r.Body.(string)
	return s, ok
}

// DecodeInto copies the decoded body into target, a pointer to a typed
// value, by round-tripping it through JSON.
func (r *Result) DecodeInto(target any) error {
	raw, ok := r.Body.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(r.Body)
		if err != nil {
			return fmt.Errorf("re-encode body: %w", err)
		}
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode body into %T: %w", target, err)
	}
	return nil
}
