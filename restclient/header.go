package restclient

import (
	"net/http"
	"sort"
	"strings"
)

// Header is a set of request headers keyed by lower-case name.
// All methods lower-case the name before touching the map, so
// "Content-Type" and "content-type" always address the same entry.
type Header map[string]string

// NewHeader returns a Header holding h with lower-cased names.
// Entries whose name is empty are dropped.
func NewHeader(h map[string]string) Header {
	out := make(Header, len(h))
	for k, v := range h {
		out.Set(k, v)
	}
	return out
}

// Get returns the value for name, or "" when unset.
func (h Header) Get(name string) string {
	return h[strings.ToLower(name)]
}

// Has reports whether name is set.
func (h Header) Has(name string) bool {
	_, ok := h[strings.ToLower(name)]
	return ok
}

// Set assigns value to name. Empty names are ignored.
func (h Header) Set(name, value string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return
	}
	h[name] = value
}

// Del removes name.
func (h Header) Del(name string) {
	delete(h, strings.ToLower(name))
}

// Clone returns a copy of h. A nil Header clones to an empty one.
func (h Header) Clone() Header {
	out := make(Header, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Names returns the header names in sorted order.
func (h Header) Names() []string {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// WithDefaults returns a new Header containing defaults overlaid by h.
// A name present in h is never replaced by its default.
func (h Header) WithDefaults(defaults Header) Header {
	out := make(Header, len(h)+len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range h {
		out[k] = v
	}
	return out
}

// HTTP converts h to an http.Header.
func (h Header) HTTP() http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		out.Set(k, v)
	}
	return out
}
