// Package httpx builds the single HTTP client handle shared by the catalog source, filename resolver and fetcher,
// so cookies from logging in are sent with every later request and the remote service sees a bounded request rate.
package httpx

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"

	"golang.org/x/time/rate"
)

const DefaultUserAgent = "bf-download/1.0 (+https://github.com/alanbriolat/audio-archiver)"

type Options struct {
	// RequestsPerSecond limits how often requests start; zero or negative means unlimited.
	RequestsPerSecond float64
	// Burst is how many requests may start back to back before the limit applies.
	Burst     int
	UserAgent string
	// Transport is the underlying RoundTripper; nil means http.DefaultTransport.
	Transport http.RoundTripper
}

func DefaultOptions() Options {
	return Options{
		RequestsPerSecond: 2,
		Burst:             1,
		UserAgent:         DefaultUserAgent,
	}
}

// NewClient returns a client with a cookie jar and the rate limit from opts. It has no overall timeout because file
// bodies can take arbitrarily long; callers bound individual requests with a context instead.
func NewClient(opts Options) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &http.Client{
		Jar:       jar,
		Transport: NewTransport(opts),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}, nil
}

// NewTransport wraps opts.Transport so every request first waits for the rate limiter and carries a User-Agent.
func NewTransport(opts Options) http.RoundTripper {
	next := opts.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return &transport{next: next, limiter: limiter, userAgent: opts.UserAgent}
}

type transport struct {
	next      http.RoundTripper
	limiter   *rate.Limiter
	userAgent string
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.next.RoundTrip(req)
}
