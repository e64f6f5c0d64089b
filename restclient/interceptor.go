package restclient

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestInterceptor edits an outgoing *http.Request after its headers are
// set and before it is sent. Returning an error aborts the request.
//
// Interceptors run after the header merge, so a header they add is not
// subject to the explicit-over-default rule. An Authorization header set
// here is still refused over plain HTTP.
type RequestInterceptor func(req *http.Request) error

// CorrelationIDInterceptor sets headerName to a fresh UUID unless the
// request already carries one.
func CorrelationIDInterceptor(headerName string) RequestInterceptor {
	return func(req *http.Request) error {
		if req.Header.Get(headerName) == "" {
			req.Header.Set(headerName, uuid.NewString())
		}
		return nil
	}
}

// TokenInterceptor sets the Authorization header from tokenFunc on every
// request, for tokens that expire and are refreshed out of band.
func TokenInterceptor(scheme string, tokenFunc func() (string, error)) RequestInterceptor {
	return func(req *http.Request) error {
		token, err := tokenFunc()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", scheme+" "+token)
		return nil
	}
}

// APIKeyInterceptor sets a static API key header.
func APIKeyInterceptor(headerName, apiKey string) RequestInterceptor {
	return func(req *http.Request) error {
		req.Header.Set(headerName, apiKey)
		return nil
	}
}
