package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request tags, used for logging and metrics labels.
const (
	TagSearch  = "search"
	TagArticle = "article"
	TagFeed    = "feed"
	TagRobots  = "robots"
)

// Request describes a single page fetch.
type Request struct {
	// URL is the target URL to fetch.
	URL *url.URL

	// Method is the HTTP method. Defaults to GET.
	Method string

	// Headers are custom HTTP headers to send with the request.
	Headers http.Header

	// Timeout overrides the fetcher's timeout for this request.
	Timeout time.Duration

	// RenderWait is how long a browser fetch lets the page render after it
	// loads. HTTP fetches ignore it.
	RenderWait time.Duration

	// Tag categorizes this request (search, article, feed, robots).
	Tag string
}

// NewRequest parses rawURL and returns a GET request for it.
func NewRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	return &Request{
		URL:     u,
		Method:  http.MethodGet,
		Headers: make(http.Header),
		Tag:     TagArticle,
	}, nil
}

// URLString returns the string representation of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// Domain returns the hostname of the request URL.
func (r *Request) Domain() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Hostname()
}
