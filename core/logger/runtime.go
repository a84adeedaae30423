package logger

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// contextKey is a private type to avoid collisions in context.
type contextKey string

const (
	ctxRID       contextKey = "rid"
	ctxSender    contextKey = "sender"
	ctxMessageID contextKey = "message_id"
	ctxTransport contextKey = "transport"
	ctxLogger    contextKey = "logger"
	ctxHandler   contextKey = "handler"
)

// WithLogger stores the provided slog.Logger in context for propagation across layers.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxLogger, log)
}

// FromContext extracts slog.Logger from context or returns global default.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxLogger).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return L
}

// NewRID returns a fresh correlation id.
func NewRID() string {
	return uuid.NewString()
}

// WithRID attaches request correlation id into context.
func WithRID(ctx context.Context, rid string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRID, rid)
}

// RIDFrom extracts rid from context if present.
func RIDFrom(ctx context.Context) string {
	return stringValue(ctx, ctxRID)
}

// WithMessageMeta attaches the inbound message identifiers to context.
// A correlation id is generated when the context does not carry one yet.
func WithMessageMeta(ctx context.Context, transport, messageID, sender string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if RIDFrom(ctx) == "" {
		ctx = WithRID(ctx, NewRID())
	}
	if transport != "" {
		ctx = context.WithValue(ctx, ctxTransport, transport)
	}
	if messageID != "" {
		ctx = context.WithValue(ctx, ctxMessageID, messageID)
	}
	if sender != "" {
		ctx = context.WithValue(ctx, ctxSender, sender)
	}
	return ctx
}

// SenderFrom returns the raw sender identifier stored in context.
func SenderFrom(ctx context.Context) string {
	return stringValue(ctx, ctxSender)
}

// MessageIDFrom returns the inbound message id stored in context.
func MessageIDFrom(ctx context.Context) string {
	return stringValue(ctx, ctxMessageID)
}

// TransportFrom returns the transport name stored in context.
func TransportFrom(ctx context.Context) string {
	return stringValue(ctx, ctxTransport)
}

// WithHandler stores handler identifier in context for downstream logs.
func WithHandler(ctx context.Context, handler string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if handler == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxHandler, handler)
}

// HandlerFrom returns handler identifier from context if present.
func HandlerFrom(ctx context.Context) string {
	return stringValue(ctx, ctxHandler)
}

// TraceIDFrom returns the OpenTelemetry trace id of the span in ctx.
func TraceIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// SpanIDFrom returns the OpenTelemetry span id of the span in ctx.
func SpanIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasSpanID() {
		return ""
	}
	return sc.SpanID().String()
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}

// MaskSender hides all but the last four characters of a sender identifier.
// Transport prefixes such as "tg:" are preserved.
func MaskSender(sender string) string {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return ""
	}
	prefix := ""
	if i := strings.IndexByte(sender, ':'); i >= 0 {
		prefix, sender = sender[:i+1], sender[i+1:]
	}
	r := []rune(sender)
	if len(r) <= 4 {
		return prefix + sender
	}
	return prefix + strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}

// Sanitize trims non-printable runes from s to keep logs clean.
// It removes control characters (Unicode categories Cc, Cf) except for tab and newline.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeLimit applies Sanitize and limits the output length in runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(Sanitize(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max])
}

// CompactRID shortens a UUID correlation id to its first group for readability.
// Other inputs are returned unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	if rid == "" {
		return ""
	}
	if _, err := uuid.Parse(rid); err != nil {
		return rid
	}
	return rid[:8]
}
