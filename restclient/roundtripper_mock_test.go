package restclient

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/stretchr/testify/mock"
)

// roundTripperMock is a testify mock of http.RoundTripper.
type roundTripperMock struct {
	mock.Mock
}

func (m *roundTripperMock) RoundTrip(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}

func textResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func fastRetry(maxRetries uint) RetryConfig {
	return RetryConfig{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}
