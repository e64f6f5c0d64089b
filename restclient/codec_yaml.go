package restclient

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML bodies. It is not registered by default:
//
//	client, err := restclient.New(props,
//	    restclient.WithCodec(restclient.MediaTypeYAML, restclient.YAMLCodec),
//	)
var YAMLCodec Codec = yamlCodec{}

type yamlCodec struct{}

func (yamlCodec) Encode(v any, cd ContentDescriptor) ([]byte, error) {
	text, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedBody, err)
	}
	return encodeCharset(text, cd.Charset)
}

func (yamlCodec) Decode(data []byte, cd ContentDescriptor) (any, error) {
	text := decodeCharset(data, cd.Charset)

	var v any
	if err := yaml.Unmarshal(text, &v); err != nil {
		return string(text), nil
	}
	return v, nil
}
