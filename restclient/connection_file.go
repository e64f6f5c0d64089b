package restclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// connectionFile is the YAML form of ConnectionProperties.
type connectionFile struct {
	Host         string            `yaml:"host"`
	Secure       *bool             `yaml:"secure"`
	PathPrefix   string            `yaml:"path_prefix"`
	PathPostfix  string            `yaml:"path_postfix"`
	ExtraHeaders map[string]string `yaml:"extra_headers"`
	DefaultQuery map[string]string `yaml:"default_query"`
}

// LoadConnectionProperties reads connection properties from a YAML file:
//
//	host: api.bitbucket.org
//	path_prefix: /2.0
//	extra_headers:
//	  Accept: application/json
func LoadConnectionProperties(path string) (*ConnectionProperties, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read connection file: %w", err)
	}
	return ParseConnectionProperties(data)
}

// ParseConnectionProperties decodes YAML connection properties.
// Unknown keys are rejected.
func ParseConnectionProperties(data []byte) (*ConnectionProperties, error) {
	var cf connectionFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty connection file", ErrInvalidConfig)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cf.Host == "" {
		return nil, fmt.Errorf("%w: %s is required", ErrInvalidConfig, PropHost)
	}

	opts := []ConnectionOption{
		PathPrefix(cf.PathPrefix),
		PathPostfix(cf.PathPostfix),
		ExtraHeaders(cf.ExtraHeaders),
	}
	if cf.Secure != nil && !*cf.Secure {
		opts = append(opts, Insecure())
	}
	if len(cf.DefaultQuery) > 0 {
		q := make(url.Values, len(cf.DefaultQuery))
		for k, v := range cf.DefaultQuery {
			q.Set(k, v)
		}
		opts = append(opts, DefaultQuery(q))
	}
	return Connection(cf.Host, opts...), nil
}
