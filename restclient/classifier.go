package restclient

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
)

// RetryClassifier reports whether an exchange should be retried.
//
// Example - also retry 500:
//
//	restclient.WithRetryClassifier(func(resp *http.Response, err error) bool {
//	    if resp != nil && resp.StatusCode == http.StatusInternalServerError {
//	        return true
//	    }
//	    return restclient.DefaultClassifier(resp, err)
//	})
type RetryClassifier func(resp *http.Response, err error) bool

// DefaultClassifier retries transient network errors and 429, 502, 503
// and 504 responses. It never retries cancellation, certificate failures,
// unknown hosts or any other status.
func DefaultClassifier(resp *http.Response, err error) bool {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		if isPermanentError(err) {
			return false
		}
		return true
	}

	if resp == nil {
		return false
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// StatusCodeClassifier retries the given status codes and transient
// network errors.
func StatusCodeClassifier(codes ...int) RetryClassifier {
	codeSet := make(map[int]bool, len(codes))
	for _, code := range codes {
		codeSet[code] = true
	}

	return func(resp *http.Response, err error) bool {
		if err != nil {
			return isRetryableNetworkError(err) && !isPermanentError(err)
		}
		return resp != nil && codeSet[resp.StatusCode]
	}
}

// isRetryableNetworkError reports network errors that are usually transient.
func isRetryableNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, io.EOF) {
		return true
	}

	return containsAny(err, "connection refused", "connection reset", "i/o timeout",
		"temporary failure", "server closed", "broken pipe", "eof")
}

// isPermanentError reports errors a retry cannot fix.
func isPermanentError(err error) bool {
	if err == nil {
		return false
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return true
	}

	if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EHOSTDOWN) {
		return true
	}

	// Errors produced before any I/O.
	if errors.Is(err, ErrInsecureAuthorization) || errors.Is(err, ErrThrottled) {
		return true
	}

	return containsAny(err, "x509:", "certificate", "tls:", "no route to host", "permission denied")
}

func containsAny(err error, patterns ...string) bool {
	msg := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
