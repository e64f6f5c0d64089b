package restclient

import (
	"fmt"
	"net/http"
	"strings"
)

// Method is the closed set of HTTP verbs a request chain can end with.
// Because the set is fixed, a path segment that happens to be spelled like
// a verb ("get", "post") is always treated as an ordinary segment.
type Method int

const (
	MethodHead Method = iota + 1
	MethodGet
	MethodPost
	MethodPut
	MethodDelete
	MethodPatch
)

var methodNames = map[Method]string{
	MethodHead:   http.MethodHead,
	MethodGet:    http.MethodGet,
	MethodPost:   http.MethodPost,
	MethodPut:    http.MethodPut,
	MethodDelete: http.MethodDelete,
	MethodPatch:  http.MethodPatch,
}

// String returns the wire form of the method ("GET", "POST", ...).
func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// HasBody reports whether requests with this method carry a body.
func (m Method) HasBody() bool {
	return m == MethodPost || m == MethodPut || m == MethodPatch
}

// ParseMethod returns the Method named by s, ignoring case.
func ParseMethod(s string) (Method, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for m, name := range methodNames {
		if name == upper {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}
