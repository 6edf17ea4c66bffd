// Package httptransport provides a RoundTripper that resolves request URLs
// against a fixed base URL, so callers can issue requests with relative
// paths against a per-environment gateway host.
package httptransport

import (
	"net/http"
	"net/url"
)

type transport struct {
	inner   http.RoundTripper
	baseURL *url.URL
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not mutate the caller's request.
	resolved := req.Clone(req.Context())
	resolved.URL = t.baseURL.ResolveReference(req.URL)
	resolved.Host = ""
	return t.inner.RoundTrip(resolved)
}

// NewTransport wraps http.DefaultTransport so that every request URL is
// interpreted relative to baseURL.
func NewTransport(baseURL string) (http.RoundTripper, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &transport{
		inner:   http.DefaultTransport,
		baseURL: parsedURL,
	}, nil
}
