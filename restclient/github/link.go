package github

import (
	"net/http"
	"regexp"
	"strings"
)

// Link is one entry of an RFC 5988 Link header.
type Link struct {
	URL    string
	Params map[string]string
}

// linkSplit separates entries. The '<' of every entry after the first is
// consumed by the split.
var linkSplit = regexp.MustCompile(`, *<`)

const linkTrimChars = ` '"`

// ParseLinkHeader parses a Link header value:
//
//	<https://api.github.com/x?page=2>; rel="next", <https://api.github.com/x?page=5>; rel="last"
//
// Parameter parsing for an entry stops at the first segment that is not a
// single key=value pair.
func ParseLinkHeader(value string) []Link {
	value = strings.Trim(value, linkTrimChars)
	if value == "" {
		return nil
	}

	var links []Link
	for _, entry := range linkSplit.Split(value, -1) {
		rawURL, params, _ := strings.Cut(entry, ";")
		link := Link{
			URL:    strings.Trim(rawURL, "<>"+linkTrimChars),
			Params: make(map[string]string),
		}

		for _, param := range strings.Split(params, ";") {
			parts := strings.Split(param, "=")
			if len(parts) != 2 {
				break
			}
			link.Params[strings.Trim(parts[0], linkTrimChars)] = strings.Trim(parts[1], linkTrimChars)
		}

		links = append(links, link)
	}
	return links
}

// NextLink returns the URL of the rel="next" link in h, or "" when there
// is none.
func NextLink(h http.Header) string {
	for _, value := range h.Values("Link") {
		for _, link := range ParseLinkHeader(value) {
			if link.Params["rel"] == "next" {
				return link.URL
			}
		}
	}
	return ""
}
