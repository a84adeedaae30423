package session

import (
	"sync"
	"time"
)

// Store maps sender identifiers to sessions.
//
// The map lock only covers lookup and insertion of an entry; changes to a
// session happen under that session's own mutex, so a slow mutation for one
// sender never holds up another sender.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

type entry struct {
	mu   sync.Mutex
	sess Session
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the time source used for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate returns a snapshot of the sender's session, inserting a default
// one on first contact. It never fails.
func (s *Store) GetOrCreate(senderID string) Session {
	e := s.entry(senderID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess
}

// Mutate applies fn to the sender's session while holding the sender's lock
// and returns the resulting snapshot. No other Mutate for the same sender runs
// concurrently with fn. When fn changes the dialog state, Version is bumped
// and UpdatedAt refreshed; leaving Step at StepNone also clears scratch data.
// SenderID, Version and the timestamps cannot be changed by fn.
func (s *Store) Mutate(senderID string, fn func(*Session)) Session {
	e := s.entry(senderID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if fn == nil {
		return e.sess
	}
	before := e.sess
	work := e.sess
	fn(&work)

	if work.Step == StepNone || !work.Step.Valid() {
		work.Reset()
	}
	work.SenderID = before.SenderID
	work.Version = before.Version
	work.CreatedAt = before.CreatedAt
	work.UpdatedAt = before.UpdatedAt

	if work.state() != before.state() {
		work.Version++
		work.UpdatedAt = s.now()
	}
	e.sess = work
	return work
}

// Len returns the number of sessions held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) entry(senderID string) *entry {
	s.mu.RLock()
	e, ok := s.entries[senderID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[senderID]; ok {
		return e
	}
	e = &entry{sess: newSession(senderID, s.now())}
	s.entries[senderID] = e
	return e
}
