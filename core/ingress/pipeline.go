// Package ingress filters inbound messages before they reach the dialog engine.
package ingress

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/arafat-telecom/chatbot/core/logger"
)

// ReplySlowDown answers a sender that exceeded the rate limit.
const ReplySlowDown = "⏳ You're sending messages too fast. Please wait a moment and try again."

// Handle statuses, also used as metric labels.
const (
	StatusAccepted    = "accepted"
	StatusDuplicate   = "duplicate"
	StatusRateLimited = "rate_limited"
	StatusDropped     = "dropped"
	StatusFailed      = "failed"
)

// Message is one inbound text from any transport.
type Message struct {
	Transport string
	ID        string
	SenderID  string
	Text      string
}

// Engine consumes accepted messages.
type Engine interface {
	Deliver(ctx context.Context, senderID, text string) error
}

// Sink sends replies produced by the pipeline itself.
type Sink interface {
	Send(ctx context.Context, to, text string) error
}

// Observer records one status per handled message.
type Observer interface {
	ObserveInbound(transport, status string)
}

// Options configure a Pipeline. Zero DedupWindow or RateInterval disables that stage.
type Options struct {
	Engine   Engine
	Sink     Sink
	Observer Observer

	DedupWindow     time.Duration
	DedupMaxEntries int
	RateInterval    time.Duration
	RateBurst       int
}

// Pipeline drops blank senders, deduplicates, rate limits and then hands off to the engine.
type Pipeline struct {
	engine   Engine
	sink     Sink
	observer Observer
	seen     *dedup
	limit    *limiter
}

// New returns a Pipeline; Engine is required.
func New(opts Options) (*Pipeline, error) {
	if opts.Engine == nil {
		return nil, errors.New("ingress: engine is required")
	}
	return &Pipeline{
		engine:   opts.Engine,
		sink:     opts.Sink,
		observer: opts.Observer,
		seen:     newDedup(opts.DedupWindow, opts.DedupMaxEntries),
		limit:    newLimiter(opts.RateInterval, opts.RateBurst),
	}, nil
}

// Handle processes msg synchronously and returns its status.
// The error is non-nil only when the engine or the slow-down reply failed.
func (p *Pipeline) Handle(ctx context.Context, msg Message) (string, error) {
	msg.SenderID = strings.TrimSpace(msg.SenderID)
	ctx = logger.WithMessageMeta(ctx, msg.Transport, msg.ID, msg.SenderID)

	status, err := p.handle(ctx, msg)
	if p.observer != nil {
		p.observer.ObserveInbound(msg.Transport, status)
	}
	return status, err
}

func (p *Pipeline) handle(ctx context.Context, msg Message) (string, error) {
	if msg.SenderID == "" {
		logger.Warn(ctx, "ingress", "message.dropped", slog.String("reason", "blank_sender"))
		return StatusDropped, nil
	}

	if msg.ID != "" && p.seen.seenBefore(msg.Transport+"|"+msg.ID) {
		logger.Info(ctx, "ingress", "message.duplicate")
		return StatusDuplicate, nil
	}

	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, "ingress", "message.received",
			slog.String("payload", logger.SanitizeLimit(msg.Text, 256)),
		)
	}

	if !p.limit.allow(msg.SenderID) {
		logger.Warn(ctx, "ingress", "rate_limit", slog.String("status", "limited"))
		if p.sink == nil {
			return StatusRateLimited, nil
		}
		if err := p.sink.Send(ctx, msg.SenderID, ReplySlowDown); err != nil {
			return StatusRateLimited, err
		}
		return StatusRateLimited, nil
	}

	if err := p.engine.Deliver(ctx, msg.SenderID, msg.Text); err != nil {
		logger.Error(ctx, "ingress", "message.fail", slog.String("error", err.Error()))
		return StatusFailed, err
	}
	return StatusAccepted, nil
}
