package restclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseContentType(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   ContentDescriptor
	}{
		{
			name:   "given an empty header, then describes octet-stream in the default charset",
			header: "",
			want: ContentDescriptor{
				MediaType: MediaTypeOctetStream,
				Params:    map[string][]string{"charset": {DefaultCharset}},
				Charset:   DefaultCharset,
			},
		},
		{
			name:   "given a media type only, then fills in the default charset",
			header: "application/json",
			want: ContentDescriptor{
				MediaType: MediaTypeJSON,
				Params:    map[string][]string{"charset": {DefaultCharset}},
				Charset:   DefaultCharset,
			},
		},
		{
			name:   "given repeated parameters, then keeps every value in order",
			header: "application/json; charset=UTF-8; param=a; param=b",
			want: ContentDescriptor{
				MediaType: MediaTypeJSON,
				Params:    map[string][]string{"charset": {"UTF-8"}, "param": {"a", "b"}},
				Charset:   "UTF-8",
			},
		},
		{
			name:   "given quoted and mixed-case parameters, then normalizes them",
			header: `text/plain;  Charset="utf-8" ;flag`,
			want: ContentDescriptor{
				MediaType: "text/plain",
				Params:    map[string][]string{"charset": {"utf-8"}},
				Charset:   "utf-8",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseContentType(tt.header))
		})
	}
}

func TestContentDescriptor_Param(t *testing.T) {
	cd := ParseContentType("multipart/form-data; Boundary=xyz")

	assert.Equal(t, "xyz", cd.Param("boundary"))
	assert.Equal(t, "xyz", cd.Param("BOUNDARY"))
	assert.Empty(t, cd.Param("missing"))
	assert.Equal(t, "multipart/form-data; charset=ISO-8859-1", cd.String())
}

func TestCodecKey(t *testing.T) {
	assert.Equal(t, "application_json", codecKey("Application/JSON"))
	assert.Equal(t, "application_vnd_github_v3_json", codecKey("application/vnd.github.v3+json"))
	assert.Equal(t, "text_javascript", codecKey(" text/javascript "))
}
