package cli

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tidwall/jsonc"

	"github.com/kroma-labs/agnostic/restclient"
)

// ErrUsage reports malformed command line input.
var ErrUsage = errors.New("usage error")

// Invocation is one parsed request from the command line.
type Invocation struct {
	Method  restclient.Method
	Path    string
	Query   url.Values
	Headers map[string]string
	Body    any
}

// ParseInvocation reads "METHOD path [key=value ...]" plus the raw -H and
// --data flag values. path may be written with slashes or as separate
// segments: "repos/octocat/hello" and "repos octocat hello" build the
// same request. Arguments containing '=' become query parameters.
func ParseInvocation(args, headers []string, data string) (*Invocation, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("%w: expected METHOD and a path", ErrUsage)
	}

	method, err := restclient.ParseMethod(args[0])
	if err != nil {
		return nil, err
	}

	var segments []string
	query := url.Values{}
	for _, arg := range args[1:] {
		if k, v, ok := strings.Cut(arg, "="); ok {
			if k == "" {
				return nil, fmt.Errorf("%w: parameter %q has no name", ErrUsage, arg)
			}
			query.Add(k, v)
			continue
		}
		segments = append(segments, strings.Trim(arg, "/"))
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: expected a path", ErrUsage)
	}

	h, err := ParseHeaders(headers)
	if err != nil {
		return nil, err
	}
	body, err := ParseData(data)
	if err != nil {
		return nil, err
	}
	if body != nil && !method.HasBody() {
		return nil, fmt.Errorf("%w: %s does not take --data", ErrUsage, method)
	}

	return &Invocation{
		Method:  method,
		Path:    "/" + strings.Join(segments, "/"),
		Query:   query,
		Headers: h,
		Body:    body,
	}, nil
}

// ParseHeaders reads "Name: value" pairs.
func ParseHeaders(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, line := range raw {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: header %q is not \"Name: value\"", ErrUsage, line)
		}
		out[strings.ToLower(name)] = strings.TrimSpace(value)
	}
	return out, nil
}

// ParseData decodes a request body given on the command line. Comments
// and trailing commas are accepted. An empty value means no body.
func ParseData(data string) (any, error) {
	if strings.TrimSpace(data) == "" {
		return nil, nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON([]byte(data))))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: --data is not valid JSON: %v", ErrUsage, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: --data holds more than one JSON value", ErrUsage)
	}
	return v, nil
}
