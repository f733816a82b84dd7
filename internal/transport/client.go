// Package transport builds the outbound HTTP client used by fetch workers.
package transport

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Options configures the HTTP client.
type Options struct {
	// ProxyURL routes both http and https requests, e.g. "socks5://10.0.0.2:1080".
	// Empty means the environment proxy settings apply.
	ProxyURL string

	// Header is sent with every request unless the request already sets the key.
	Header http.Header

	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 50
	MaxIdleConnsPerHost int
}

// NewClient creates an HTTP client with the given options. The client has no
// overall timeout, callers bound each request with a context deadline.
func NewClient(opts Options) (*http.Client, error) {
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = 50
	}

	proxy := http.ProxyFromEnvironment
	if opts.ProxyURL != "" {
		u, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("parse proxy url: missing scheme or host in %q", opts.ProxyURL)
		}
		proxy = http.ProxyURL(u)
	}

	transport := &http.Transport{
		Proxy: proxy,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          opts.MaxIdleConnsPerHost * 2,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	return &http.Client{
		Transport: &headerTransport{base: transport, header: opts.Header.Clone()},
	}, nil
}

type headerTransport struct {
	base   http.RoundTripper
	header http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.header) == 0 {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	for k, v := range t.header {
		if r.Header.Get(k) == "" {
			r.Header[k] = v
		}
	}
	return t.base.RoundTrip(r)
}

// DefaultHeader returns the static header set sent with image requests.
func DefaultHeader(userAgent, accept string) http.Header {
	h := make(http.Header)
	if userAgent != "" {
		h.Set("User-Agent", userAgent)
	}
	if accept != "" {
		h.Set("Accept", accept)
	}
	return h
}
