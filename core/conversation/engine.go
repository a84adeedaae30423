// Package conversation drives the per-sender dialog: registration, login and
// AI chat. Every inbound message gets exactly one reply.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arafat-telecom/chatbot/core/ai"
	"github.com/arafat-telecom/chatbot/core/credential"
	"github.com/arafat-telecom/chatbot/core/directory"
	"github.com/arafat-telecom/chatbot/core/logger"
	"github.com/arafat-telecom/chatbot/core/session"
)

const (
	// DefaultCollaboratorTimeout bounds each directory, credential and AI call.
	DefaultCollaboratorTimeout = 10 * time.Second
	// DefaultMaxAttempts bounds how often a message is re-evaluated after losing a commit race.
	DefaultMaxAttempts = 4
)

// Sink delivers a reply to a sender.
type Sink interface {
	Send(ctx context.Context, to, text string) error
}

// Recorder receives per-message measurements.
type Recorder interface {
	ObserveRule(rule, outcome string, took time.Duration)
	ObserveConflict(rule string)
}

// Options wire an Engine to its collaborators.
type Options struct {
	Store     *session.Store
	Directory directory.Directory
	Gate      credential.Gate
	AI        ai.Responder
	Sink      Sink
	Recorder  Recorder

	CollaboratorTimeout time.Duration
	MaxAttempts         int
}

// Engine is the conversation state machine.
type Engine struct {
	store    *session.Store
	dir      directory.Directory
	gate     credential.Gate
	ai       ai.Responder
	sink     Sink
	recorder Recorder

	timeout     time.Duration
	maxAttempts int
}

// New validates opts and returns an Engine.
func New(opts Options) (*Engine, error) {
	switch {
	case opts.Store == nil:
		return nil, errors.New("conversation: session store is required")
	case opts.Directory == nil:
		return nil, errors.New("conversation: directory is required")
	case opts.Gate == nil:
		return nil, errors.New("conversation: credential gate is required")
	case opts.Sink == nil:
		return nil, errors.New("conversation: reply sink is required")
	}
	e := &Engine{
		store:       opts.Store,
		dir:         opts.Directory,
		gate:        opts.Gate,
		ai:          opts.AI,
		sink:        opts.Sink,
		recorder:    opts.Recorder,
		timeout:     opts.CollaboratorTimeout,
		maxAttempts: opts.MaxAttempts,
	}
	if e.ai == nil {
		e.ai = ai.Unavailable{}
	}
	if e.recorder == nil {
		e.recorder = nopRecorder{}
	}
	if e.timeout <= 0 {
		e.timeout = DefaultCollaboratorTimeout
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = DefaultMaxAttempts
	}
	return e, nil
}

// Deliver handles one inbound message and sends exactly one reply.
//
// A rule is chosen from a snapshot of the sender's session. Collaborator calls
// run without holding the sender's lock; the rule's session change then
// commits only if no other message for the sender committed in between,
// otherwise the message is evaluated again against the newer session.
// The returned error reports reply delivery or cancellation only.
func (e *Engine) Deliver(ctx context.Context, senderID, text string) error {
	start := time.Now()
	in := newInput(text)

	var (
		r         *rule
		eff       effect
		before    session.Session
		after     session.Session
		committed bool
		attempts  int
	)
	for !committed && attempts < e.maxAttempts {
		attempts++
		if err := ctx.Err(); err != nil {
			return err
		}
		before = e.store.GetOrCreate(senderID)
		r = pick(in, before)
		eff = r.eval(ctx, e, in, before)
		if eff.apply == nil {
			committed, after = true, before
			break
		}
		after = e.store.Mutate(senderID, func(s *session.Session) {
			if s.Version != before.Version {
				return
			}
			eff.apply(s)
			committed = true
		})
		if !committed {
			e.recorder.ObserveConflict(r.name)
			logger.Debug(ctx, "engine", "commit.conflict",
				slog.String("rule", r.name),
				slog.Int("attempt", attempts),
				slog.Uint64("version", before.Version),
			)
		}
	}

	res := eff.result
	switch {
	case !committed:
		res = result{reply: ReplyBusy, outcome: OutcomeConflict}
		after = before
	case eff.finish != nil:
		res = eff.finish(ctx)
	}

	took := time.Since(start)
	e.recorder.ObserveRule(r.name, res.outcome, took)
	e.logRule(ctx, r.name, before, after, res, attempts, took)

	if err := e.sink.Send(ctx, senderID, res.reply); err != nil {
		return fmt.Errorf("conversation: send reply: %w", err)
	}
	return nil
}

func (e *Engine) snapshot(senderID string) session.Session {
	return e.store.GetOrCreate(senderID)
}

func (e *Engine) hash(ctx context.Context, secret string) (string, error) {
	return call(ctx, e.timeout, func(context.Context) (string, error) {
		return e.gate.Hash(secret)
	})
}

func (e *Engine) logRule(ctx context.Context, name string, before, after session.Session, res result, attempts int, took time.Duration) {
	attrs := []slog.Attr{
		slog.String("status", statusOf(res.outcome)),
		slog.String("rule", name),
		slog.String("step", string(before.Step)),
		slog.String("step_next", string(after.Step)),
		slog.String("outcome", res.outcome),
		slog.Int("attempts", attempts),
		slog.Duration("duration", logger.RoundMS(took)),
	}
	level := slog.LevelInfo
	if res.err != nil {
		attrs = append(attrs, slog.String("err", res.err.Error()))
		if !directory.IsDuplicate(res.err) {
			level = slog.LevelWarn
		}
	}
	logger.Event(ctx, "engine", level, "rule.applied", attrs...)
}

func statusOf(outcome string) string {
	switch outcome {
	case OutcomeOK, OutcomeReprompt:
		return "ok"
	case OutcomeConflict:
		return "retry"
	default:
		return "fail"
	}
}

// call runs fn with a deadline and returns as soon as either finishes.
// fn may outlive the call when it ignores its context.
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx)
		done <- outcome{v, err}
	}()
	select {
	case out := <-done:
		return out.val, out.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

type nopRecorder struct{}

func (nopRecorder) ObserveRule(string, string, time.Duration) {}
func (nopRecorder) ObserveConflict(string)                    {}
