package outbound

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arafat-telecom/chatbot/core/logger"
	"github.com/arafat-telecom/chatbot/core/netutil"
)

// ErrQueueClosed is reported in logs when a send arrives after Close.
var ErrQueueClosed = errors.New("outbound: queue closed")

// Observer receives one call per finished delivery.
type Observer interface {
	ObserveSend(transport, status, errorKind string, took time.Duration)
}

// Options controls the behaviour of the Dispatcher.
type Options struct {
	// QueueSize is the capacity of each worker queue.
	QueueSize int
	Workers   int
	// MaxRetries applies to transient network errors only. Zero disables retries.
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent on a single reply, retries included.
	MaxDuration time.Duration
	Observer    Observer
}

type job struct {
	ctx  context.Context
	to   string
	text string
}

// Dispatcher delivers replies asynchronously. Replies for one recipient always
// go through the same worker, so they arrive in the order they were sent.
type Dispatcher struct {
	opts      Options
	transport Transport

	mu     sync.RWMutex
	closed bool
	queues []chan job
	wg     sync.WaitGroup

	errs   atomic.Uint64
	inline atomic.Uint64
}

// NewDispatcher starts the workers. Zero options get defaults.
func NewDispatcher(t Transport, opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 15 * time.Second
	}

	d := &Dispatcher{
		opts:      opts,
		transport: t,
		queues:    make([]chan job, opts.Workers),
	}
	d.wg.Add(opts.Workers)
	for i := range d.queues {
		d.queues[i] = make(chan job, opts.QueueSize)
		go d.worker(d.queues[i])
	}
	return d
}

// Send queues text for to and returns immediately. When the queue is full or
// the dispatcher is closed the reply is delivered synchronously instead, and
// the delivery error, if any, is returned.
func (d *Dispatcher) Send(ctx context.Context, to, text string) error {
	j := job{ctx: context.WithoutCancel(ctx), to: to, text: text}

	d.mu.RLock()
	if !d.closed {
		select {
		case d.queues[d.shard(to)] <- j:
			d.mu.RUnlock()
			return nil
		default:
		}
	}
	closed := d.closed
	d.mu.RUnlock()

	d.inline.Add(1)
	cause := "queue.full"
	if closed {
		cause = ErrQueueClosed.Error()
	}
	logger.Warn(ctx, "outbound", "send.inline", slog.String("reason", cause))
	return d.deliver(j)
}

// ErrorCount returns the number of replies that could not be delivered.
func (d *Dispatcher) ErrorCount() uint64 { return d.errs.Load() }

// InlineCount returns the number of replies delivered outside the worker queues.
func (d *Dispatcher) InlineCount() uint64 { return d.inline.Load() }

// Close stops accepting queued work and waits for queued replies to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) shard(to string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(to))
	return int(h.Sum32() % uint32(len(d.queues)))
}

func (d *Dispatcher) worker(q <-chan job) {
	defer d.wg.Done()
	for j := range q {
		_ = d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) error {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	name := d.transportName(j.to)
	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	var lastErr error
attemptLoop:
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = d.transport.SendText(ctx, j.to, j.text)
		if lastErr == nil {
			d.observe(name, "ok", "", start)
			logger.Debug(ctx, "outbound", "send.success",
				slog.String("status", "ok"),
				slog.String("transport", name),
				slog.Int("attempt", attempt),
				slog.Duration("duration", logger.Took(start)),
			)
			return nil
		}
		if !netutil.ShouldRetry(lastErr) || attempt == attempts {
			break
		}
		delay := d.opts.RetryBackoff * time.Duration(attempt)
		logger.Debug(ctx, "outbound", "send.retry.backoff",
			slog.String("transport", name),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			lastErr = errors.Join(lastErr, ctx.Err())
			break attemptLoop
		case <-timer.C:
		}
	}

	d.errs.Add(1)
	kind := classifyError(lastErr)
	d.observe(name, "fail", kind, start)
	logger.Error(ctx, "outbound", "send.fail",
		slog.String("status", "fail"),
		slog.String("transport", name),
		slog.String("err", sanitizeErrorMessage(lastErr)),
		slog.String("error_kind", kind),
		slog.Int("attempts", attempts),
		slog.Duration("duration", logger.Took(start)),
	)
	return lastErr
}

func (d *Dispatcher) transportName(to string) string {
	if m, ok := d.transport.(*Mux); ok {
		if t, err := m.Resolve(to); err == nil {
			return t.Name()
		}
	}
	return d.transport.Name()
}

func (d *Dispatcher) observe(transport, status, kind string, start time.Time) {
	if d.opts.Observer != nil {
		d.opts.Observer.ObserveSend(transport, status, kind, time.Since(start))
	}
}
