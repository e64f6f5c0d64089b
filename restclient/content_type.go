package restclient

import (
	"strings"
	"unicode"
)

// Media types and the charset assumed when none is declared.
const (
	MediaTypeOctetStream = "application/octet-stream"
	MediaTypeJSON        = "application/json"
	MediaTypeJavaScript  = "text/javascript"
	MediaTypeYAML        = "application/yaml"

	DefaultCharset = "ISO-8859-1"
)

// ContentDescriptor is a parsed Content-Type header.
type ContentDescriptor struct {
	// MediaType is the first ;-separated segment, trimmed.
	MediaType string
	// Params holds every key=value segment. Keys are lower-cased and a
	// repeated key keeps all of its values in order.
	Params map[string][]string
	// Charset is the first charset parameter, or DefaultCharset.
	Charset string
}

// ParseContentType parses a Content-Type header value. An empty value
// describes raw bytes: application/octet-stream in DefaultCharset.
//
//	"application/json; charset=UTF-8; param=a; param=b"
//	=> MediaType "application/json", Charset "UTF-8",
//	   Params {"charset": ["UTF-8"], "param": ["a", "b"]}
func ParseContentType(header string) ContentDescriptor {
	cd := ContentDescriptor{Params: make(map[string][]string)}

	if strings.TrimSpace(header) == "" {
		cd.MediaType = MediaTypeOctetStream
	} else {
		segments := strings.Split(header, ";")
		cd.MediaType = strings.TrimSpace(segments[0])
		for _, seg := range segments[1:] {
			key, value, ok := strings.Cut(seg, "=")
			if !ok {
				continue
			}
			key = strings.ToLower(strings.TrimSpace(key))
			value = strings.Trim(strings.TrimSpace(value), `"`)
			cd.Params[key] = append(cd.Params[key], value)
		}
	}

	if cs := cd.Params["charset"]; len(cs) > 0 {
		cd.Charset = cs[0]
	} else {
		cd.Charset = DefaultCharset
		cd.Params["charset"] = []string{DefaultCharset}
	}
	return cd
}

// Param returns the first value of the named parameter.
func (cd ContentDescriptor) Param(key string) string {
	if vs := cd.Params[strings.ToLower(key)]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// String renders the descriptor as a Content-Type value with its charset.
func (cd ContentDescriptor) String() string {
	return cd.MediaType + "; charset=" + cd.Charset
}

// codecKey normalizes a media type into a registry key: lower-case, with
// every character that is not a letter or digit replaced by '_'.
func codecKey(mediaType string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return '_'
	}, strings.TrimSpace(mediaType))
}
