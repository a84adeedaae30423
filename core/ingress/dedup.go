package ingress

import (
	"sync"
	"time"
)

type seenEntry struct {
	key string
	at  time.Time
}

// dedup remembers message keys for a bounded window and entry count.
type dedup struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	seen   map[string]time.Time
	order  []seenEntry
	now    func() time.Time
}

func newDedup(window time.Duration, max int) *dedup {
	if max <= 0 {
		max = 10000
	}
	return &dedup{
		window: window,
		max:    max,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// seenBefore records key and reports whether it was already recorded within the window.
func (d *dedup) seenBefore(key string) bool {
	if d == nil || d.window <= 0 || key == "" {
		return false
	}
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()

	d.expire(now)
	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = now
	d.order = append(d.order, seenEntry{key: key, at: now})
	return false
}

// expire drops entries older than the window and the oldest entries beyond max.
func (d *dedup) expire(now time.Time) {
	drop := 0
	for drop < len(d.order) {
		e := d.order[drop]
		if now.Sub(e.at) <= d.window && len(d.order)-drop < d.max {
			break
		}
		if at, ok := d.seen[e.key]; ok && at.Equal(e.at) {
			delete(d.seen, e.key)
		}
		drop++
	}
	if drop > 0 {
		d.order = append(d.order[:0], d.order[drop:]...)
	}
}

func (d *dedup) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
