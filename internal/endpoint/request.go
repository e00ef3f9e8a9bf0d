package endpoint

import (
	"net/url"
	"strings"
)

// Request is one fully built API call. Body is JSON-encoded by the transport;
// nil means no body.
type Request struct {
	Method string
	URL    string
	Query  url.Values
	Body   any
}

// FullURL returns URL with the encoded query appended.
func (r Request) FullURL() string {
	if len(r.Query) == 0 {
		return r.URL
	}
	sep := "?"
	if strings.Contains(r.URL, "?") {
		sep = "&"
	}
	return r.URL + sep + r.Query.Encode()
}
