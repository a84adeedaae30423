package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arafat-telecom/chatbot/core/credential"
	"github.com/arafat-telecom/chatbot/core/directory"
	"github.com/arafat-telecom/chatbot/core/session"
)

type sentReply struct {
	to   string
	text string
}

type fakeSink struct {
	mu      sync.Mutex
	replies []sentReply
	err     error
}

func (s *fakeSink) Send(_ context.Context, to, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, sentReply{to: to, text: text})
	return s.err
}

func (s *fakeSink) textsFor(to string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, r := range s.replies {
		if r.to == to {
			out = append(out, r.text)
		}
	}
	return out
}

func (s *fakeSink) last(to string) string {
	texts := s.textsFor(to)
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

// fakeGate "hashes" deterministically so tests can assert on digests.
type fakeGate struct {
	hashHook func(secret string)
	err      error
}

func digestOf(secret string) string { return "h(" + secret + ")" }

func (g *fakeGate) Hash(secret string) (string, error) {
	if g.hashHook != nil {
		g.hashHook(secret)
	}
	if g.err != nil {
		return "", g.err
	}
	return digestOf(secret), nil
}

func (g *fakeGate) Verify(secret, digest string) bool { return digestOf(secret) == digest }

type recordingDirectory struct {
	*directory.Memory
	mu        sync.Mutex
	creates   []directory.NewUser
	findDelay time.Duration
}

func (d *recordingDirectory) Create(ctx context.Context, u directory.NewUser) (directory.User, error) {
	d.mu.Lock()
	d.creates = append(d.creates, u)
	d.mu.Unlock()
	return d.Memory.Create(ctx, u)
}

func (d *recordingDirectory) FindByEmail(ctx context.Context, email string) (directory.User, error) {
	if d.findDelay > 0 {
		select {
		case <-time.After(d.findDelay):
		case <-ctx.Done():
			return directory.User{}, ctx.Err()
		}
	}
	return d.Memory.FindByEmail(ctx, email)
}

func (d *recordingDirectory) createCalls() []directory.NewUser {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]directory.NewUser(nil), d.creates...)
}

type fakeAI struct {
	ask func(ctx context.Context, text string) (string, error)
	got []string
	mu  sync.Mutex
}

func (a *fakeAI) Ask(ctx context.Context, text string) (string, error) {
	a.mu.Lock()
	a.got = append(a.got, text)
	a.mu.Unlock()
	if a.ask != nil {
		return a.ask(ctx, text)
	}
	return "ai says: " + text, nil
}

type harness struct {
	engine *Engine
	store  *session.Store
	dir    *recordingDirectory
	gate   *fakeGate
	ai     *fakeAI
	sink   *fakeSink
}

func newHarness(t *testing.T, tweak func(*Options)) *harness {
	t.Helper()
	h := &harness{
		store: session.NewStore(),
		dir:   &recordingDirectory{Memory: directory.NewMemory()},
		gate:  &fakeGate{},
		ai:    &fakeAI{},
		sink:  &fakeSink{},
	}
	opts := Options{
		Store:     h.store,
		Directory: h.dir,
		Gate:      h.gate,
		AI:        h.ai,
		Sink:      h.sink,
	}
	if tweak != nil {
		tweak(&opts)
	}
	engine, err := New(opts)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	h.engine = engine
	return h
}

func (h *harness) send(t *testing.T, sender string, texts ...string) {
	t.Helper()
	for _, text := range texts {
		if err := h.engine.Deliver(context.Background(), sender, text); err != nil {
			t.Fatalf("deliver %q: %v", text, err)
		}
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error for empty options")
	}
	if _, err := New(Options{Store: session.NewStore(), Directory: directory.NewMemory(), Gate: &fakeGate{}}); err == nil {
		t.Fatalf("expected error without sink")
	}
}

func TestFirstMessageCreatesDefaultSession(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, "+1", "hello")
	sess := h.engine.snapshot("+1")
	if sess.Step != session.StepNone || sess.Authenticated || sess.AIMode {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if h.store.Len() != 1 {
		t.Fatalf("sessions = %d, want 1", h.store.Len())
	}
	if got := h.sink.last("+1"); got != ReplyHint {
		t.Fatalf("reply = %q, want hint", got)
	}
}

func TestExampleRegistrationScenario(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, "+100", "menu", "1", "a@x.com", "secret", "1234")

	want := []string{ReplyMenu, ReplyAskEmail, ReplyAskPassword, ReplyAskPIN, ReplyRegistered}
	got := h.sink.textsFor("+100")
	if len(got) != len(want) {
		t.Fatalf("replies = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reply %d = %q, want %q", i, got[i], want[i])
		}
	}

	user, err := h.dir.Memory.FindByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if user.SenderID != "+100" || h.dir.Len() != 1 {
		t.Fatalf("unexpected directory state: %+v (len %d)", user, h.dir.Len())
	}
	sess := h.engine.snapshot("+100")
	if sess.Step != session.StepNone {
		t.Fatalf("step = %q, want none", sess.Step)
	}
	if sess.PendingEmail != "" || sess.PendingPasswordHash != "" {
		t.Fatalf("scratch fields not cleared: %+v", sess)
	}
}

func TestRegistrationCreatesOnceWithHashes(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, "+7", "1", "b@y.org", "hunter22", "0042")

	calls := h.dir.createCalls()
	if len(calls) != 1 {
		t.Fatalf("create calls = %d, want 1", len(calls))
	}
	want := directory.NewUser{SenderID: "+7", Email: "b@y.org", PasswordHash: digestOf("hunter22"), PinHash: digestOf("0042")}
	if calls[0] != want {
		t.Fatalf("create = %+v, want %+v", calls[0], want)
	}
}

func TestRegistrationDuplicateFailsAndResets(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, "+1", "1", "a@x.com", "secret", "1234")
	h.send(t, "+2", "1", "A@X.com", "secret", "1234")
	if got := h.sink.last("+2"); got != ReplyEmailTaken {
		t.Fatalf("reply = %q, want email taken", got)
	}
	if sess := h.engine.snapshot("+2"); sess.Step != session.StepNone {
		t.Fatalf("step = %q, want none", sess.Step)
	}

	h.send(t, "+1", "1", "c@x.com", "secret", "1234")
	if got := h.sink.last("+1"); got != ReplyAlreadyRegistered {
		t.Fatalf("reply = %q, want already registered", got)
	}
	if h.dir.Len() != 1 {
		t.Fatalf("users = %d, want 1", h.dir.Len())
	}
}

func TestInvalidStepInputReprompts(t *testing.T) {
	cases := []struct {
		name   string
		prefix []string
		input  string
		reply  string
		step   session.Step
	}{
		{"bad email", []string{"1"}, "not-an-email", ReplyInvalidEmail, session.StepRegisterEmail},
		{"display name email", []string{"1"}, "Bob <b@x.com>", ReplyInvalidEmail, session.StepRegisterEmail},
		{"short password", []string{"1", "a@x.com"}, "12345", ReplyInvalidPassword, session.StepRegisterPassword},
		{"long password", []string{"1", "a@x.com"}, strings.Repeat("p", 80), ReplyInvalidPassword, session.StepRegisterPassword},
		{"letters in pin", []string{"1", "a@x.com", "secret"}, "12a4", ReplyInvalidPIN, session.StepRegisterPIN},
		{"long pin", []string{"1", "a@x.com", "secret"}, "12345", ReplyInvalidPIN, session.StepRegisterPIN},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.send(t, "+1", tc.prefix...)
			before := h.engine.snapshot("+1")
			h.send(t, "+1", tc.input)
			after := h.engine.snapshot("+1")
			if got := h.sink.last("+1"); got != tc.reply {
				t.Fatalf("reply = %q, want %q", got, tc.reply)
			}
			if after.Step != tc.step || after.Version != before.Version {
				t.Fatalf("state changed: before %+v after %+v", before, after)
			}
			if len(h.dir.createCalls()) != 0 {
				t.Fatalf("directory touched on invalid input")
			}
		})
	}
}

func TestLogin(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, "+1", "1", "a@x.com", "secret", "1234")

	h.send(t, "+1", "2", "a@x.com", "wrong-password")
	if got := h.sink.last("+1"); got != ReplyInvalidLogin {
		t.Fatalf("reply = %q, want invalid login", got)
	}
	sess := h.engine.snapshot("+1")
	if sess.Authenticated || sess.Step != session.StepNone || sess.PendingLoginEmail != "" {
		t.Fatalf("after failed login: %+v", sess)
	}

	h.send(t, "+1", "2", " A@x.com ", "secret")
	if got := h.sink.last("+1"); got != ReplyLoggedIn {
		t.Fatalf("reply = %q, want logged in", got)
	}
	sess = h.engine.snapshot("+1")
	if !sess.Authenticated || sess.Step != session.StepNone {
		t.Fatalf("after login: %+v", sess)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, "+1", "2", "ghost@x.com", "secret")
	if got := h.sink.last("+1"); got != ReplyInvalidLogin {
		t.Fatalf("reply = %q", got)
	}
	if sess := h.engine.snapshot("+1"); sess.Authenticated || sess.Step != session.StepNone {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

func TestLoginTimeoutResetsFlow(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.CollaboratorTimeout = 20 * time.Millisecond })
	h.dir.findDelay = time.Second
	h.send(t, "+1", "2", "a@x.com", "secret")
	if got := h.sink.last("+1"); got != ReplyLoginFailed {
		t.Fatalf("reply = %q, want login failed", got)
	}
	if sess := h.engine.snapshot("+1"); sess.Step != session.StepNone || sess.Authenticated {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

func TestHashFailureResetsRegistration(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, "+1", "1", "a@x.com")
	h.gate.err = errors.New("entropy exhausted")
	h.send(t, "+1", "secret")
	if got := h.sink.last("+1"); got != ReplyRegistrationFailed {
		t.Fatalf("reply = %q", got)
	}
	if sess := h.engine.snapshot("+1"); sess.Step != session.StepNone || sess.PendingEmail != "" {
		t.Fatalf("flow not reset: %+v", sess)
	}
}

func TestOverlongPasswordRepromptsWithBcrypt(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Gate = credential.NewBcrypt(4) })
	h.send(t, "+1", "1", "a@x.com")
	before := h.engine.snapshot("+1")
	h.send(t, "+1", strings.Repeat("p", 80))
	if got := h.sink.last("+1"); got != ReplyInvalidPassword {
		t.Fatalf("reply = %q, want %q", got, ReplyInvalidPassword)
	}
	after := h.engine.snapshot("+1")
	if after.Step != session.StepRegisterPassword || after.Version != before.Version || after.PendingEmail != "a@x.com" {
		t.Fatalf("state changed: before %+v after %+v", before, after)
	}

	h.send(t, "+1", strings.Repeat("p", MaxPasswordBytes), "1234")
	if got := h.sink.last("+1"); got != ReplyRegistered {
		t.Fatalf("reply = %q, want %q", got, ReplyRegistered)
	}
}

func TestAIModeToggleIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, "+1", "EXIT")
	if sess := h.engine.snapshot("+1"); sess.AIMode {
		t.Fatalf("exit enabled ai mode")
	}
	if got := h.sink.last("+1"); got != ReplyAIOff {
		t.Fatalf("reply = %q", got)
	}

	h.send(t, "+1", "3")
	if sess := h.engine.snapshot("+1"); !sess.AIMode {
		t.Fatalf("ai mode not enabled")
	}
	h.send(t, "+1", "exit", "exit")
	if sess := h.engine.snapshot("+1"); sess.AIMode {
		t.Fatalf("ai mode still enabled")
	}
}

func TestAIModeForwardsVerbatim(t *testing.T) {
	h := newHarness(t, nil)
	h.ai.ask = func(_ context.Context, text string) (string, error) {
		return "  reply to [" + text + "]\n", nil
	}
	h.send(t, "+1", "3")
	for _, text := range []string{"What is data?", "4", "Menu please", "exit now"} {
		h.send(t, "+1", text)
		if got, want := h.sink.last("+1"), "  reply to ["+text+"]\n"; got != want {
			t.Fatalf("reply = %q, want %q", got, want)
		}
	}
	if sess := h.engine.snapshot("+1"); !sess.AIMode || sess.Step != session.StepNone {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if len(h.ai.got) != 4 {
		t.Fatalf("ai calls = %d, want 4", len(h.ai.got))
	}
}

func TestAIFailureKeepsMode(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.CollaboratorTimeout = 20 * time.Millisecond })
	h.ai.ask = func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	h.send(t, "+1", "3", "hello")
	if got := h.sink.last("+1"); got != ReplyAIUnavailable {
		t.Fatalf("reply = %q", got)
	}
	if sess := h.engine.snapshot("+1"); !sess.AIMode {
		t.Fatalf("ai mode dropped after failure")
	}
}

func TestCommandsBeatAIMode(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, "+1", "3", " MENU ", "1")
	got := h.sink.textsFor("+1")
	if got[1] != ReplyMenu || got[2] != ReplyAskEmail {
		t.Fatalf("replies = %q", got)
	}
	if len(h.ai.got) != 0 {
		t.Fatalf("commands reached the ai responder")
	}
}

func TestDispatchOrder(t *testing.T) {
	cases := []struct {
		text string
		sess session.Session
		rule string
	}{
		{"menu", session.Session{Step: session.StepRegisterPIN}, "menu"},
		{"1", session.Session{Step: session.StepLoginPassword}, "register.start"},
		{"2", session.Session{Step: session.StepRegisterEmail}, "register.email"},
		{"3", session.Session{Step: session.StepRegisterPassword}, "register.password"},
		{"exit", session.Session{Step: session.StepRegisterPIN}, "register.pin"},
		{"2", session.Session{Step: session.StepNone, AIMode: true}, "login.start"},
		{"x", session.Session{Step: session.StepLoginEmail, AIMode: true}, "login.email"},
		{"x", session.Session{Step: session.StepLoginPassword}, "login.password"},
		{"3", session.Session{Step: session.StepNone}, "ai.enter"},
		{"Exit", session.Session{Step: session.StepNone, AIMode: true}, "ai.exit"},
		{"hi", session.Session{Step: session.StepNone, AIMode: true}, "ai.ask"},
		{"hi", session.Session{Step: session.StepNone}, "fallback"},
	}
	for _, tc := range cases {
		if got := pick(newInput(tc.text), tc.sess).name; got != tc.rule {
			t.Fatalf("pick(%q, %s) = %s, want %s", tc.text, tc.sess.Step, got, tc.rule)
		}
	}
	if rules[len(rules)-1].name != "fallback" {
		t.Fatalf("fallback must be the last rule")
	}
}

func TestStartingFlowClearsOtherFlow(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, "+1", "2", "a@x.com", "1")
	sess := h.engine.snapshot("+1")
	if sess.Step != session.StepRegisterEmail || sess.PendingLoginEmail != "" {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

func TestExhaustedAttemptsLeaveSessionUnchanged(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.MaxAttempts = 3 })
	h.send(t, "+1", "1", "a@x.com")

	var interfered atomic.Int32
	h.gate.hashHook = func(string) {
		// Another message for the same sender commits while the hash runs.
		interfered.Add(1)
		h.store.Mutate("+1", func(s *session.Session) { s.AIMode = !s.AIMode })
	}
	h.send(t, "+1", "secret")

	if got := h.sink.last("+1"); got != ReplyBusy {
		t.Fatalf("reply = %q, want busy", got)
	}
	if interfered.Load() != 3 {
		t.Fatalf("attempts = %d, want 3", interfered.Load())
	}
	sess := h.engine.snapshot("+1")
	if sess.Step != session.StepRegisterPassword || sess.PendingPasswordHash != "" || sess.PendingEmail != "a@x.com" {
		t.Fatalf("session changed: %+v", sess)
	}
}

func TestConflictIsRetried(t *testing.T) {
	h := newHarness(t, nil)
	h.send(t, "+1", "1", "a@x.com")

	var once sync.Once
	h.gate.hashHook = func(string) {
		once.Do(func() {
			h.store.Mutate("+1", func(s *session.Session) { s.AIMode = true })
		})
	}
	h.send(t, "+1", "secret")
	if got := h.sink.last("+1"); got != ReplyAskPIN {
		t.Fatalf("reply = %q, want PIN prompt", got)
	}
	sess := h.engine.snapshot("+1")
	if sess.Step != session.StepRegisterPIN || !sess.AIMode {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

func TestConcurrentPINCreatesOnce(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.MaxAttempts = 50 })
	h.send(t, "+1", "1", "a@x.com", "secret")
	h.gate.hashHook = func(string) { time.Sleep(5 * time.Millisecond) }

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.engine.Deliver(context.Background(), "+1", "1234")
		}()
	}
	wg.Wait()

	if n := len(h.dir.createCalls()); n != 1 {
		t.Fatalf("create calls = %d, want 1", n)
	}
	replies := h.sink.textsFor("+1")[3:]
	if len(replies) != 8 {
		t.Fatalf("replies = %d, want 8", len(replies))
	}
	var registered int
	for _, r := range replies {
		if r == ReplyRegistered {
			registered++
		}
	}
	if registered != 1 {
		t.Fatalf("success replies = %d, want 1 (%q)", registered, replies)
	}
}

type dialogState struct {
	step          session.Step
	authenticated bool
	aiMode        bool
	email         string
	loginEmail    string
}

func stateOf(s session.Session) dialogState {
	return dialogState{s.Step, s.Authenticated, s.AIMode, s.PendingEmail, s.PendingLoginEmail}
}

func permutations(items []string) [][]string {
	if len(items) <= 1 {
		return [][]string{append([]string(nil), items...)}
	}
	var out [][]string
	for i := range items {
		rest := append(append([]string(nil), items[:i]...), items[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]string{items[i]}, p...))
		}
	}
	return out
}

func TestConcurrentDeliveryIsLinearizable(t *testing.T) {
	messages := []string{"1", "a@x.com", "2", "3", "exit"}

	serial := make(map[dialogState]bool)
	for _, order := range permutations(messages) {
		h := newHarness(t, nil)
		h.send(t, "+1", order...)
		serial[stateOf(h.engine.snapshot("+1"))] = true
	}

	for trial := range 50 {
		h := newHarness(t, func(o *Options) { o.MaxAttempts = 1000 })
		var wg sync.WaitGroup
		start := make(chan struct{})
		for _, m := range messages {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_ = h.engine.Deliver(context.Background(), "+1", m)
			}()
		}
		close(start)
		wg.Wait()

		final := stateOf(h.engine.snapshot("+1"))
		if !serial[final] {
			t.Fatalf("trial %d: final state %+v matches no serial order", trial, final)
		}
		if n := len(h.sink.textsFor("+1")); n != len(messages) {
			t.Fatalf("trial %d: replies = %d, want %d", trial, n, len(messages))
		}
	}
}

func TestSlowSenderDoesNotBlockOthers(t *testing.T) {
	h := newHarness(t, nil)
	release := make(chan struct{})
	entered := make(chan struct{})
	h.ai.ask = func(context.Context, string) (string, error) {
		close(entered)
		<-release
		return "late", nil
	}
	h.send(t, "+A", "3")

	done := make(chan error, 1)
	go func() { done <- h.engine.Deliver(context.Background(), "+A", "slow question") }()
	<-entered

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		_ = h.engine.Deliver(context.Background(), "+B", "menu")
		_ = h.engine.Deliver(context.Background(), "+B", "1")
		// The blocked sender's own session is not locked either.
		_ = h.engine.Deliver(context.Background(), "+A", "exit")
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatalf("other deliveries blocked behind a slow AI call")
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("slow deliver: %v", err)
	}

	if got := h.sink.textsFor("+B"); len(got) != 2 || got[0] != ReplyMenu || got[1] != ReplyAskEmail {
		t.Fatalf("sender B replies = %q", got)
	}
	if got := h.sink.last("+A"); got != "late" {
		t.Fatalf("sender A last reply = %q", got)
	}
}

func TestSinkErrorIsReturned(t *testing.T) {
	h := newHarness(t, nil)
	h.sink.err = errors.New("transport down")
	err := h.engine.Deliver(context.Background(), "+1", "menu")
	if err == nil || !strings.Contains(err.Error(), "transport down") {
		t.Fatalf("err = %v", err)
	}
}

func TestCancelledContext(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.engine.Deliver(ctx, "+1", "menu"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(h.sink.textsFor("+1")) != 0 {
		t.Fatalf("reply sent for cancelled message")
	}
}

func TestValidators(t *testing.T) {
	for _, in := range []string{"a@x.com", "First.Last+tag@sub.example.org"} {
		if _, ok := validEmail(in); !ok {
			t.Fatalf("validEmail(%q) = false", in)
		}
	}
	if got, _ := validEmail("A@X.COM"); got != "a@x.com" {
		t.Fatalf("email not lower-cased: %q", got)
	}
	for _, in := range []string{"", "plain", "@x.com", "a@", "a b@x.com"} {
		if _, ok := validEmail(in); ok {
			t.Fatalf("validEmail(%q) = true", in)
		}
	}
	if validPassword("12345") || !validPassword("123456") || !validPassword("pässwö") {
		t.Fatalf("password length check wrong")
	}
	if !validPassword(strings.Repeat("a", MaxPasswordBytes)) || validPassword(strings.Repeat("a", MaxPasswordBytes+1)) {
		t.Fatalf("password byte ceiling wrong")
	}
	// 36 two-byte runes fill the limit exactly
	if !validPassword(strings.Repeat("ä", 36)) || validPassword(strings.Repeat("ä", 37)) {
		t.Fatalf("password byte ceiling counts runes")
	}
	if !validPIN("0000") || validPIN("１２３４") || validPIN("123") {
		t.Fatalf("pin check wrong")
	}
}

