package session

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestGetOrCreateDefaults(t *testing.T) {
	s := NewStore()
	sess := s.GetOrCreate("+100")
	if sess.SenderID != "+100" {
		t.Fatalf("sender id = %q", sess.SenderID)
	}
	if sess.Step != StepNone || sess.Authenticated || sess.AIMode {
		t.Fatalf("unexpected default session: %+v", sess)
	}
	if sess.Version != 0 {
		t.Fatalf("version = %d, want 0", sess.Version)
	}
	s.GetOrCreate("+100")
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
}

func TestGetOrCreateConcurrentFirstContact(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.GetOrCreate("+200")
		}()
	}
	wg.Wait()
	if s.Len() != 1 {
		t.Fatalf("len = %d, want exactly one session", s.Len())
	}
}

func TestMutateBumpsVersionOnlyOnChange(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewStore(WithClock(func() time.Time { return fixed }))

	got := s.Mutate("a", func(sess *Session) { sess.AIMode = true })
	if !got.AIMode || got.Version != 1 {
		t.Fatalf("after change: %+v", got)
	}
	got = s.Mutate("a", func(sess *Session) { sess.AIMode = true })
	if got.Version != 1 {
		t.Fatalf("no-op mutation bumped version to %d", got.Version)
	}
	got = s.Mutate("a", nil)
	if got.Version != 1 {
		t.Fatalf("nil mutation bumped version to %d", got.Version)
	}
	if !got.UpdatedAt.Equal(fixed) {
		t.Fatalf("updated at = %v", got.UpdatedAt)
	}
}

func TestMutateProtectsIdentity(t *testing.T) {
	s := NewStore()
	got := s.Mutate("a", func(sess *Session) {
		sess.SenderID = "b"
		sess.Version = 99
		sess.Step = StepLoginEmail
	})
	if got.SenderID != "a" || got.Version != 1 {
		t.Fatalf("identity changed: %+v", got)
	}
}

func TestMutateClearsScratchAtNone(t *testing.T) {
	s := NewStore()
	s.Mutate("a", func(sess *Session) {
		sess.Step = StepRegisterPIN
		sess.PendingEmail = "a@x.com"
		sess.PendingPasswordHash = "hash"
	})
	got := s.Mutate("a", func(sess *Session) { sess.Step = StepNone })
	if got.PendingEmail != "" || got.PendingPasswordHash != "" || got.PendingLoginEmail != "" {
		t.Fatalf("scratch not cleared: %+v", got)
	}

	got = s.Mutate("a", func(sess *Session) { sess.Step = Step("bogus") })
	if got.Step != StepNone {
		t.Fatalf("unknown step kept: %q", got.Step)
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	s := NewStore()
	snap := s.GetOrCreate("a")
	snap.AIMode = true
	if s.GetOrCreate("a").AIMode {
		t.Fatalf("snapshot write leaked into store")
	}
}

func TestMutateSerializesPerSender(t *testing.T) {
	s := NewStore()
	const n = 200
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Mutate("counter", func(sess *Session) {
				// Read-modify-write across several fields; a lost update would show up in the count.
				var count int
				fmt.Sscanf(sess.PendingLoginEmail, "%d", &count)
				sess.Step = StepLoginPassword
				sess.PendingLoginEmail = fmt.Sprint(count + 1)
			})
		}()
	}
	wg.Wait()
	got := s.GetOrCreate("counter")
	if got.PendingLoginEmail != fmt.Sprint(n) {
		t.Fatalf("count = %s, want %d", got.PendingLoginEmail, n)
	}
	if got.Version != n {
		t.Fatalf("version = %d, want %d", got.Version, n)
	}
}

func TestMutateDoesNotBlockOtherSenders(t *testing.T) {
	s := NewStore()
	held := make(chan struct{})
	release := make(chan struct{})
	go s.Mutate("slow", func(sess *Session) {
		close(held)
		<-release
		sess.AIMode = true
	})
	<-held

	done := make(chan Session, 1)
	go func() {
		done <- s.Mutate("fast", func(sess *Session) { sess.AIMode = true })
	}()
	select {
	case got := <-done:
		if !got.AIMode {
			t.Fatalf("fast sender not updated")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("mutation for another sender blocked")
	}
	close(release)
}

func TestStepValid(t *testing.T) {
	for _, st := range Steps {
		if !st.Valid() {
			t.Fatalf("%q should be valid", st)
		}
	}
	if Step("").Valid() || Step("done").Valid() {
		t.Fatalf("unknown steps reported valid")
	}
}
