package ingress

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type senderLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// limiter applies a token bucket per sender.
type limiter struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	senders map[string]*senderLimiter
	now     func() time.Time
	sweepAt time.Time
}

func newLimiter(interval time.Duration, burst int) *limiter {
	if interval <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &limiter{
		every:   rate.Every(interval),
		burst:   burst,
		senders: make(map[string]*senderLimiter),
		now:     time.Now,
	}
}

// allow reports whether sender may send another message now. A nil limiter allows everything.
func (l *limiter) allow(sender string) bool {
	if l == nil {
		return true
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.sweepAt) {
		for id, s := range l.senders {
			if now.Sub(s.lastSeen) > limiterIdleTTL {
				delete(l.senders, id)
			}
		}
		l.sweepAt = now.Add(limiterIdleTTL)
	}

	s, ok := l.senders[sender]
	if !ok {
		s = &senderLimiter{lim: rate.NewLimiter(l.every, l.burst)}
		l.senders[sender] = s
	}
	s.lastSeen = now
	return s.lim.AllowN(now, 1)
}
