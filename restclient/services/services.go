// Package services holds connection presets for public REST APIs that
// need nothing beyond a plain restclient.Client. GitHub, which adds rate
// limiting and pagination, lives in the github package.
package services

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/kroma-labs/agnostic/restclient"
)

// Credentials carries what the presets accept. Each preset reads only the
// fields it needs.
type Credentials struct {
	// Token is a bearer token (DigitalOcean, AppVeyor).
	Token string
	// QueryKey is an API key sent as a query parameter (BingMaps).
	QueryKey string
	// Accept overrides the accept header where a preset sets one.
	Accept string
}

// Preset builds the connection properties of one API.
type Preset func(creds Credentials) (*restclient.ConnectionProperties, error)

var presets = map[string]Preset{
	"appveyor":       AppVeyorConnection,
	"bingmaps":       BingMapsConnection,
	"bitbucket":      BitbucketConnection,
	"digitalocean":   DigitalOceanConnection,
	"facebook":       FacebookConnection,
	"maven":          MavenConnection,
	"openweathermap": OpenWeatherMapConnection,
	"salesforce":     SalesForceConnection,
}

// Names lists the registered presets in sorted order.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the preset registered under name.
func Lookup(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// New creates a client for the named preset.
func New(name string, creds Credentials, opts ...restclient.Option) (*restclient.Client, error) {
	preset, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown service %q", restclient.ErrInvalidConfig, name)
	}
	props, err := preset(creds)
	if err != nil {
		return nil, err
	}
	return restclient.New(props, opts...)
}

func bearer(token string) (map[string]string, error) {
	auth, err := restclient.AuthHeader(restclient.Credentials{
		Token:       token,
		TokenScheme: restclient.SchemeBearer,
	})
	if err != nil || auth == "" {
		return nil, err
	}
	return map[string]string{"authorization": auth}, nil
}

// AppVeyorConnection targets ci.appveyor.com with a bearer token.
// The accept header defaults to application/json.
func AppVeyorConnection(creds Credentials) (*restclient.ConnectionProperties, error) {
	headers, err := bearer(creds.Token)
	if err != nil {
		return nil, err
	}
	if headers == nil {
		headers = map[string]string{}
	}
	headers["accept"] = restclient.MediaTypeJSON
	if creds.Accept != "" {
		headers["accept"] = creds.Accept
	}
	return restclient.Connection("ci.appveyor.com", restclient.ExtraHeaders(headers)), nil
}

// BingMapsConnection targets the Bing Maps REST API under /REST/v1. The
// query key is added to every request as the "key" parameter.
func BingMapsConnection(creds Credentials) (*restclient.ConnectionProperties, error) {
	opts := []restclient.ConnectionOption{restclient.PathPrefix("/REST/v1")}
	if creds.QueryKey != "" {
		opts = append(opts, restclient.DefaultQuery(url.Values{"key": {creds.QueryKey}}))
	}
	return restclient.Connection("spatial.virtualearth.net", opts...), nil
}

// BitbucketConnection targets the Bitbucket 2.0 API.
func BitbucketConnection(Credentials) (*restclient.ConnectionProperties, error) {
	return restclient.Connection("api.bitbucket.org", restclient.PathPrefix("/2.0")), nil
}

// DigitalOceanConnection targets the DigitalOcean v2 API with an optional
// bearer token.
func DigitalOceanConnection(creds Credentials) (*restclient.ConnectionProperties, error) {
	headers, err := bearer(creds.Token)
	if err != nil {
		return nil, err
	}
	return restclient.Connection("api.digitalocean.com",
		restclient.PathPrefix("/v2"),
		restclient.ExtraHeaders(headers),
	), nil
}

// FacebookConnection targets the Facebook Graph API.
func FacebookConnection(Credentials) (*restclient.ConnectionProperties, error) {
	return restclient.Connection("graph.facebook.com"), nil
}

// MavenConnection targets Maven Central search.
func MavenConnection(Credentials) (*restclient.ConnectionProperties, error) {
	return restclient.Connection("search.maven.org", restclient.PathPrefix("/solrsearch")), nil
}

// OpenWeatherMapConnection targets the OpenWeatherMap API over plain HTTP.
func OpenWeatherMapConnection(Credentials) (*restclient.ConnectionProperties, error) {
	return restclient.Connection("api.openweathermap.org", restclient.Insecure()), nil
}

// SalesForceConnection targets the na1 SalesForce instance. XML resources
// ("data.xml") are returned as raw bytes.
func SalesForceConnection(Credentials) (*restclient.ConnectionProperties, error) {
	return restclient.Connection("na1.salesforce.com"), nil
}
