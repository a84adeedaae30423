package outbound

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/url"
	"regexp"
)

var secretRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+|(?i)(bearer\s+|access_token=)[A-Za-z0-9._-]+`)

// classifyError maps a delivery error to a short kind for logs and metrics.
func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	if errors.Is(err, ErrNoTransport) {
		return "no_transport"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return "dial"
		}
		if kind := classifyError(opErr.Err); kind != "unknown" {
			return kind
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && urlErr.Err != err {
		if kind := classifyError(urlErr.Err); kind != "unknown" {
			return kind
		}
	}

	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return "tls"
	}

	var statusErr StatusError
	if errors.As(err, &statusErr) {
		switch code := statusErr.StatusCode(); {
		case code == 429:
			return "rate_limited"
		case code >= 500:
			return "http_5xx"
		case code >= 400:
			return "http_4xx"
		}
	}
	return "unknown"
}

// sanitizeErrorMessage keeps provider tokens out of logs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return secretRe.ReplaceAllStringFunc(err.Error(), func(m string) string {
		if sub := secretRe.FindStringSubmatch(m); len(sub) > 1 && sub[1] != "" {
			return sub[1] + "<redacted>"
		}
		return "bot<redacted>"
	})
}
