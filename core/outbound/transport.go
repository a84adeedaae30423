// Package outbound delivers replies to senders through the transport that owns their identifier.
package outbound

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoTransport is returned when no transport accepts a recipient.
var ErrNoTransport = errors.New("outbound: no transport for recipient")

// Transport sends a plain text message to a recipient.
type Transport interface {
	Name() string
	SendText(ctx context.Context, to, text string) error
}

// StatusError is implemented by transport errors that carry a provider HTTP status.
type StatusError interface {
	error
	StatusCode() int
}

// APIError is a non-success response from a provider API.
type APIError struct {
	Transport string
	Status    int
	Body      string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: api status %d", e.Transport, e.Status)
	}
	return fmt.Sprintf("%s: api status %d: %s", e.Transport, e.Status, e.Body)
}

// StatusCode returns the HTTP status reported by the provider.
func (e *APIError) StatusCode() int { return e.Status }

type route struct {
	prefix    string
	transport Transport
}

// Mux picks a transport by recipient prefix. Recipients without a known
// prefix go to the fallback transport.
type Mux struct {
	routes   []route
	fallback Transport
}

// NewMux returns a Mux that sends unprefixed recipients to fallback (which may be nil).
func NewMux(fallback Transport) *Mux {
	return &Mux{fallback: fallback}
}

// Handle routes recipients starting with prefix to t.
func (m *Mux) Handle(prefix string, t Transport) {
	m.routes = append(m.routes, route{prefix: prefix, transport: t})
}

// Resolve returns the transport responsible for to.
func (m *Mux) Resolve(to string) (Transport, error) {
	for _, r := range m.routes {
		if strings.HasPrefix(to, r.prefix) {
			return r.transport, nil
		}
	}
	if m.fallback == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTransport, to)
	}
	return m.fallback, nil
}

// Name identifies the mux in logs.
func (m *Mux) Name() string { return "mux" }

// SendText delivers through the resolved transport.
func (m *Mux) SendText(ctx context.Context, to, text string) error {
	t, err := m.Resolve(to)
	if err != nil {
		return err
	}
	return t.SendText(ctx, to, text)
}
