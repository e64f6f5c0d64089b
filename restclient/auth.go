package restclient

import (
	"encoding/base64"
	"fmt"
)

// Token schemes used by the bundled API presets.
const (
	SchemeToken  = "Token"
	SchemeBearer = "Bearer"
)

// Credentials are pre-obtained API credentials. Either Username and
// Password, or Token, may be set. TokenScheme prefixes the token in the
// Authorization header and defaults to "Bearer".
type Credentials struct {
	Username    string
	Password    string
	Token       string
	TokenScheme string
}

// AuthHeader builds the Authorization header value for creds.
//
// A token yields "<scheme> <token>" and a username with password yields
// HTTP Basic auth. No credentials yield "" with no error. A password
// without a username, a token together with a password, or a username
// alone fail with ErrInvalidConfig.
func AuthHeader(creds Credentials) (string, error) {
	switch {
	case creds.Password != "" && creds.Username == "":
		return "", fmt.Errorf("%w: password given without a username", ErrInvalidConfig)
	case creds.Token != "" && creds.Password != "":
		return "", fmt.Errorf("%w: token and password are mutually exclusive", ErrInvalidConfig)
	case creds.Token != "":
		scheme := creds.TokenScheme
		if scheme == "" {
			scheme = SchemeBearer
		}
		return scheme + " " + creds.Token, nil
	case creds.Username != "" && creds.Password == "":
		return "", fmt.Errorf("%w: username given without a password or token", ErrInvalidConfig)
	case creds.Username != "":
		raw := creds.Username + ":" + creds.Password
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw)), nil
	default:
		return "", nil
	}
}
