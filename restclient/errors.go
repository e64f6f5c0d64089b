package restclient

import "errors"

var (
	// ErrInvalidConfig is returned for malformed connection properties
	// or an invalid combination of credentials.
	ErrInvalidConfig = errors.New("restclient: invalid configuration")

	// ErrInsecureAuthorization is returned when a request carrying an
	// Authorization header would be sent over plain HTTP.
	ErrInsecureAuthorization = errors.New("restclient: refusing to send authorization header over an insecure connection")

	// ErrUnknownMethod is returned by ParseMethod and Client.Do for
	// unsupported verbs.
	ErrUnknownMethod = errors.New("restclient: unknown HTTP method")

	// ErrUnsupportedBody is returned when a request body cannot be
	// represented in the selected content type.
	ErrUnsupportedBody = errors.New("restclient: unsupported request body")
)
