package netutil

import (
	"net"
	"net/http"
	"time"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 30 * time.Second
	defaultResponseTimeout   = 15 * time.Second
	defaultClientTimeout     = 30 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
)

// ClientOptions tune the client returned by NewHTTPClient.
type ClientOptions struct {
	// Timeout bounds a whole request including retries. Zero means 30s.
	Timeout time.Duration
	// Retries is the number of extra attempts after a transient network error.
	Retries int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
	// Base overrides the underlying transport, mainly for tests.
	Base http.RoundTripper
}

// NewHTTPClient returns a pooled HTTP client that retries transient network
// failures when opts.Retries is positive.
func NewHTTPClient(opts ClientOptions) *http.Client {
	base := opts.Base
	if base == nil {
		base = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       defaultIdleConnTimeout,
			TLSHandshakeTimeout:   defaultTLSHandshake,
			ResponseHeaderTimeout: defaultResponseTimeout,
			ExpectContinueTimeout: 1 * time.Second,
		}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	var rt http.RoundTripper = base
	if opts.Retries > 0 {
		rt = &retryTransport{base: base, maxRetries: opts.Retries, backoff: opts.Backoff}
	}
	return &http.Client{Timeout: timeout, Transport: rt}
}

type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	attempts := t.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		curr := req
		if attempt > 1 {
			curr = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				curr.Body = body
			} else if req.Body != nil && req.Body != http.NoBody {
				// The body was consumed by the first attempt and cannot be replayed.
				return nil, lastErr
			}
		}

		resp, err := t.base.RoundTrip(curr)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !ShouldRetry(err) || attempt == attempts {
			break
		}

		delay := t.backoff * time.Duration(attempt)
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}
