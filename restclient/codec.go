package restclient

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// Codec converts between Go values and the bytes of one media type.
//
// Decode must not fail on malformed content: codecs for structured
// formats return the decoded text instead, so a bad payload still reaches
// the caller.
type Codec interface {
	Encode(v any, cd ContentDescriptor) ([]byte, error)
	Decode(data []byte, cd ContentDescriptor) (any, error)
}

// Built-in codecs.
var (
	// OctetStreamCodec passes bytes through untouched. It is used for any
	// media type without a registered codec.
	OctetStreamCodec Codec = octetStreamCodec{}

	// JSONCodec handles application/json and text/javascript. Integral
	// numbers decode to int64, so IDs above 2^53 survive a round trip;
	// other numbers decode to float64.
	JSONCodec Codec = jsonCodec{}
)

// CodecRegistry maps media types to codecs. Lookups never fail: unknown
// media types resolve to OctetStreamCodec.
type CodecRegistry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
}

// NewCodecRegistry returns a registry with the JSON codec registered
// for application/json and text/javascript.
func NewCodecRegistry() *CodecRegistry {
	r := &CodecRegistry{codecs: make(map[string]Codec)}
	r.Register(MediaTypeOctetStream, OctetStreamCodec)
	r.Register(MediaTypeJSON, JSONCodec)
	r.Register(MediaTypeJavaScript, JSONCodec)
	return r
}

// Register sets the codec for mediaType, replacing any existing one.
func (r *CodecRegistry) Register(mediaType string, c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[codecKey(mediaType)] = c
}

// Lookup returns the codec for mediaType.
func (r *CodecRegistry) Lookup(mediaType string) Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.codecs[codecKey(mediaType)]; ok {
		return c
	}
	return OctetStreamCodec
}

// Encode serializes v according to the Content-Type value contentType.
func (r *CodecRegistry) Encode(v any, contentType string) ([]byte, error) {
	cd := ParseContentType(contentType)
	return r.Lookup(cd.MediaType).Encode(v, cd)
}

// Decode deserializes data according to the Content-Type value contentType.
func (r *CodecRegistry) Decode(data []byte, contentType string) (any, error) {
	cd := ParseContentType(contentType)
	return r.Lookup(cd.MediaType).Decode(data, cd)
}

type octetStreamCodec struct{}

func (octetStreamCodec) Encode(v any, cd ContentDescriptor) ([]byte, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	case io.Reader:
		return io.ReadAll(b)
	default:
		return nil, fmt.Errorf("%w: cannot send %T as %s", ErrUnsupportedBody, v, cd.MediaType)
	}
}

func (octetStreamCodec) Decode(data []byte, _ ContentDescriptor) (any, error) {
	return data, nil
}

type jsonCodec struct{}

func (jsonCodec) Encode(v any, cd ContentDescriptor) ([]byte, error) {
	text, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedBody, err)
	}
	return encodeCharset(escapeNonASCII(text), cd.Charset)
}

func (jsonCodec) Decode(data []byte, cd ContentDescriptor) (any, error) {
	text := decodeCharset(data, cd.Charset)

	var v any
	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil || dec.More() {
		return string(text), nil
	}
	return resolveNumbers(v), nil
}

// resolveNumbers replaces every json.Number in v, in place: integers that
// fit become int64, other numbers float64. Numbers float64 cannot hold
// either, such as 1e400, stay json.Number and re-encode verbatim.
func resolveNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t
	case map[string]any:
		for k, e := range t {
			t[k] = resolveNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = resolveNumbers(e)
		}
	}
	return v
}

// escapeNonASCII rewrites every non-ASCII rune of a JSON document as a
// \uXXXX escape, so the result is valid in any ASCII-compatible charset.
// Non-ASCII runes can only occur inside JSON strings, where the escape
// form is equivalent.
func escapeNonASCII(text []byte) []byte {
	if !hasNonASCII(text) {
		return text
	}
	var buf bytes.Buffer
	buf.Grow(len(text) + 16)
	for _, r := range string(text) {
		switch {
		case r < utf8.RuneSelf:
			buf.WriteByte(byte(r))
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&buf, "\\u%04x\\u%04x", hi, lo)
		default:
			fmt.Fprintf(&buf, "\\u%04x", r)
		}
	}
	return buf.Bytes()
}

func hasNonASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return true
		}
	}
	return false
}

// charsetEncoding resolves an IANA charset name. It returns nil for UTF-8
// and for names x/text does not know, both of which are passed through.
func charsetEncoding(charset string) encoding.Encoding {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return nil
	case "iso-8859-1", "iso8859-1", "latin1":
		return charmap.ISO8859_1
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil {
		return nil
	}
	return enc
}

func encodeCharset(text []byte, charset string) ([]byte, error) {
	enc := charsetEncoding(charset)
	if enc == nil {
		return text, nil
	}
	out, err := enc.NewEncoder().Bytes(text)
	if err != nil {
		return nil, fmt.Errorf("%w: body not representable in %s: %v", ErrUnsupportedBody, charset, err)
	}
	return out, nil
}

func decodeCharset(data []byte, charset string) []byte {
	enc := charsetEncoding(charset)
	if enc == nil {
		return data
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return data
	}
	return out
}
