package restclient

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRegistry_Decode(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		contentType string
		want        any
	}{
		{
			name:        "given a JSON object, then returns a map",
			data:        []byte(`{"login":"octocat","id":1}`),
			contentType: "application/json; charset=utf-8",
			want:        map[string]any{"login": "octocat", "id": int64(1)},
		},
		{
			name:        "given a JSON array as text/javascript, then returns a list",
			data:        []byte(`[1,"two"]`),
			contentType: "text/javascript",
			want:        []any{int64(1), "two"},
		},
		{
			name:        "given malformed JSON, then returns the text",
			data:        []byte(`{"broken"`),
			contentType: "application/json",
			want:        `{"broken"`,
		},
		{
			name:        "given two JSON documents, then returns the text",
			data:        []byte(`{} {}`),
			contentType: "application/json",
			want:        `{} {}`,
		},
		{
			name:        "given latin-1 bytes without a charset, then decodes them as ISO-8859-1",
			data:        []byte{'"', 'c', 'a', 'f', 0xe9, '"'},
			contentType: "application/json",
			want:        "café",
		},
		{
			name:        "given an unregistered media type, then returns raw bytes",
			data:        []byte("<xml/>"),
			contentType: "application/xml",
			want:        []byte("<xml/>"),
		},
		{
			name:        "given no content type, then returns raw bytes",
			data:        []byte{0x01, 0x02},
			contentType: "",
			want:        []byte{0x01, 0x02},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewCodecRegistry().Decode(tt.data, tt.contentType)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCodecRegistry_Encode(t *testing.T) {
	tests := []struct {
		name        string
		value       any
		contentType string
		want        []byte
		wantErr     error
	}{
		{
			name:        "given a map as JSON, then marshals it",
			value:       map[string]any{"a": 1},
			contentType: "application/json",
			want:        []byte(`{"a":1}`),
		},
		{
			name:        "given non-ASCII text as JSON, then escapes it",
			value:       []string{"café", "😀"},
			contentType: "application/json; charset=utf-8",
			want:        []byte(`["caf\u00e9","\ud83d\ude00"]`),
		},
		{
			name:        "given a string as octet-stream, then passes it through",
			value:       "raw",
			contentType: "application/octet-stream",
			want:        []byte("raw"),
		},
		{
			name:        "given a reader as an unknown type, then reads it",
			value:       strings.NewReader("<a/>"),
			contentType: "application/xml",
			want:        []byte("<a/>"),
		},
		{
			name:        "given a struct as octet-stream, then returns ErrUnsupportedBody",
			value:       struct{}{},
			contentType: "application/octet-stream",
			wantErr:     ErrUnsupportedBody,
		},
		{
			name:        "given an unmarshalable value as JSON, then returns ErrUnsupportedBody",
			value:       make(chan int),
			contentType: "application/json",
			wantErr:     ErrUnsupportedBody,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewCodecRegistry().Encode(tt.value, tt.contentType)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONCodec_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{name: "given null, then decodes nil", value: nil},
		{name: "given a bool, then keeps it", value: true},
		{name: "given a string with non-ASCII text, then keeps it", value: "café 😀"},
		{name: "given a negative integer, then keeps it", value: int64(-42)},
		{name: "given an integer above 2^53, then keeps every digit", value: int64(9007199254740993)},
		{name: "given a fraction, then keeps it", value: 1.5},
		{name: "given an empty list, then keeps it", value: []any{}},
		{
			name: "given nested objects and lists, then keeps them",
			value: map[string]any{
				"id":      int64(9007199254740993),
				"name":    "octocat",
				"score":   0.25,
				"admin":   false,
				"manager": nil,
				"tags":    []any{"a", int64(2), map[string]any{"x": true}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCodecRegistry()

			data, err := r.Encode(tt.value, MediaTypeJSON)
			require.NoError(t, err)

			got, err := r.Decode(data, MediaTypeJSON)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestCodecRegistry_Register(t *testing.T) {
	r := NewCodecRegistry()

	assert.Equal(t, OctetStreamCodec, r.Lookup(MediaTypeYAML))

	r.Register("Application/YAML", YAMLCodec)
	assert.Equal(t, YAMLCodec, r.Lookup(MediaTypeYAML))

	got, err := r.Decode([]byte("name: x\ntags: [a, b]\n"), "application/yaml")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "x", "tags": []any{"a", "b"}}, got)

	out, err := r.Encode(map[string]string{"name": "x"}, "application/yaml")
	require.NoError(t, err)
	assert.Equal(t, "name: x\n", string(out))
}

func TestCharsetEncoding(t *testing.T) {
	assert.Nil(t, charsetEncoding("UTF-8"))
	assert.Nil(t, charsetEncoding("no-such-charset"))
	assert.NotNil(t, charsetEncoding("ISO-8859-1"))
	assert.NotNil(t, charsetEncoding("windows-1252"))
	assert.Equal(t, []byte("abc"), decodeCharset([]byte("abc"), "no-such-charset"))
}
