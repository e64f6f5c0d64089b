package restclient

import (
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// debugLogger is the logger used by WithDebug when WithLogger is not given.
var debugLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// redactedHeaders are masked in logs and cURL output.
var redactedHeaders = map[string]bool{
	"Authorization":       true,
	"Proxy-Authorization": true,
}

// generateCurlCommand renders req as an equivalent cURL command line.
func generateCurlCommand(req *http.Request, body []byte) string {
	parts := []string{"curl"}

	if req.Method != http.MethodGet {
		parts = append(parts, "-X", req.Method)
	}
	parts = append(parts, shellQuote(req.URL.String()))

	keys := make([]string, 0, len(req.Header))
	for k := range req.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range req.Header[k] {
			if redactedHeaders[k] {
				v = "REDACTED"
			}
			parts = append(parts, "-H", shellQuote(k+": "+v))
		}
	}

	if len(body) > 0 {
		parts = append(parts, "-d", shellQuote(string(body)))
	}

	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func logRequest(logger zerolog.Logger, req *http.Request) {
	evt := logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String())
	if ct := req.Header.Get("Content-Type"); ct != "" {
		evt = evt.Str("content_type", ct)
	}
	evt.Int64("content_length", req.ContentLength).Msg("HTTP request")
}

func logResponse(logger zerolog.Logger, resp *http.Response, size int, body any, duration time.Duration) {
	logger.Debug().
		Int("status", resp.StatusCode).
		Str("content_type", resp.Header.Get("Content-Type")).
		Int("body_bytes", size).
		Str("body", describeBody(body)).
		Dur("duration", duration).
		Msg("HTTP response")
}

func logFailure(logger zerolog.Logger, req *http.Request, err error, duration time.Duration) {
	logger.Debug().
		Err(err).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("error_type", classifyError(err)).
		Dur("duration", duration).
		Msg("HTTP request failed")
}

// describeBody summarizes a decoded body for log lines.
func describeBody(body any) string {
	switch b := body.(type) {
	case nil:
		return "empty"
	case []any:
		return fmt.Sprintf("list[%d]", len(b))
	case map[string]any:
		return fmt.Sprintf("object[%d]", len(b))
	case []byte:
		return fmt.Sprintf("bytes[%d]", len(b))
	case string:
		return fmt.Sprintf("text[%d]", len(b))
	default:
		return fmt.Sprintf("%T", body)
	}
}
