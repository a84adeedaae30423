package conversation

import (
	"context"
	"errors"
	"strings"

	"github.com/arafat-telecom/chatbot/core/directory"
	"github.com/arafat-telecom/chatbot/core/session"
)

// Rule outcomes reported to logs and metrics.
const (
	OutcomeOK       = "ok"
	OutcomeReprompt = "reprompt"
	OutcomeFail     = "fail"
	OutcomeTimeout  = "timeout"
	OutcomeConflict = "conflict"
)

type input struct {
	raw   string
	text  string
	lower string
}

func newInput(raw string) input {
	text := strings.TrimSpace(raw)
	return input{raw: raw, text: text, lower: strings.ToLower(text)}
}

type result struct {
	reply   string
	outcome string
	err     error
}

// effect is what a rule decided for one message. apply runs inside the
// sender's Mutate and only if the session is still at the version the rule
// read; finish runs after that commit and may replace the reply.
type effect struct {
	result
	apply  func(*session.Session)
	finish func(context.Context) result
}

type rule struct {
	name  string
	match func(input, session.Session) bool
	eval  func(context.Context, *Engine, input, session.Session) effect
}

// rules is the transition table. The first matching rule handles the message.
var rules = []rule{
	{name: "menu", match: command("menu"), eval: respond(ReplyMenu)},
	{name: "register.start", match: command("1"), eval: startFlow(session.StepRegisterEmail, ReplyAskEmail)},
	{name: "register.email", match: atStep(session.StepRegisterEmail), eval: registerEmail},
	{name: "register.password", match: atStep(session.StepRegisterPassword), eval: registerPassword},
	{name: "register.pin", match: atStep(session.StepRegisterPIN), eval: registerPIN},
	{name: "login.start", match: command("2"), eval: startFlow(session.StepLoginEmail, ReplyAskLoginEmail)},
	{name: "login.email", match: atStep(session.StepLoginEmail), eval: loginEmail},
	{name: "login.password", match: atStep(session.StepLoginPassword), eval: loginPassword},
	{name: "ai.enter", match: command("3"), eval: setAIMode(true, ReplyAIOn)},
	{name: "ai.exit", match: command("exit"), eval: setAIMode(false, ReplyAIOff)},
	{name: "ai.ask", match: inAIMode, eval: askAI},
	{name: "fallback", match: always, eval: respond(ReplyHint)},
}

func pick(in input, s session.Session) *rule {
	for i := range rules {
		if rules[i].match(in, s) {
			return &rules[i]
		}
	}
	// fallback always matches
	return &rules[len(rules)-1]
}

func command(name string) func(input, session.Session) bool {
	return func(in input, _ session.Session) bool { return in.lower == name }
}

func atStep(step session.Step) func(input, session.Session) bool {
	return func(_ input, s session.Session) bool { return s.Step == step }
}

func inAIMode(_ input, s session.Session) bool { return s.AIMode }

func always(input, session.Session) bool { return true }

func ok(reply string) result { return result{reply: reply, outcome: OutcomeOK} }

func reprompt(reply string) effect {
	return effect{result: result{reply: reply, outcome: OutcomeReprompt}}
}

func failed(reply string, err error) result {
	outcome := OutcomeFail
	if errors.Is(err, context.DeadlineExceeded) {
		outcome = OutcomeTimeout
	}
	return result{reply: reply, outcome: outcome, err: err}
}

func resetFlow(s *session.Session) { s.Reset() }

func respond(reply string) func(context.Context, *Engine, input, session.Session) effect {
	return func(context.Context, *Engine, input, session.Session) effect {
		return effect{result: ok(reply)}
	}
}

func startFlow(step session.Step, reply string) func(context.Context, *Engine, input, session.Session) effect {
	return func(context.Context, *Engine, input, session.Session) effect {
		return effect{result: ok(reply), apply: func(s *session.Session) {
			s.Reset()
			s.Step = step
		}}
	}
}

func setAIMode(on bool, reply string) func(context.Context, *Engine, input, session.Session) effect {
	return func(context.Context, *Engine, input, session.Session) effect {
		return effect{result: ok(reply), apply: func(s *session.Session) { s.AIMode = on }}
	}
}

func registerEmail(_ context.Context, _ *Engine, in input, _ session.Session) effect {
	email, valid := validEmail(in.text)
	if !valid {
		return reprompt(ReplyInvalidEmail)
	}
	return effect{result: ok(ReplyAskPassword), apply: func(s *session.Session) {
		s.PendingEmail = email
		s.Step = session.StepRegisterPassword
	}}
}

func registerPassword(ctx context.Context, e *Engine, in input, _ session.Session) effect {
	if !validPassword(in.text) {
		return reprompt(ReplyInvalidPassword)
	}
	digest, err := e.hash(ctx, in.text)
	if err != nil {
		return effect{result: failed(ReplyRegistrationFailed, err), apply: resetFlow}
	}
	return effect{result: ok(ReplyAskPIN), apply: func(s *session.Session) {
		s.PendingPasswordHash = digest
		s.Step = session.StepRegisterPIN
	}}
}

// registerPIN claims the pending registration (step back to none) before the
// user is created, so a flow can produce at most one Create call.
func registerPIN(ctx context.Context, e *Engine, in input, snap session.Session) effect {
	if !validPIN(in.text) {
		return reprompt(ReplyInvalidPIN)
	}
	pinHash, err := e.hash(ctx, in.text)
	if err != nil {
		return effect{result: failed(ReplyRegistrationFailed, err), apply: resetFlow}
	}
	user := directory.NewUser{
		SenderID:     snap.SenderID,
		Email:        snap.PendingEmail,
		PasswordHash: snap.PendingPasswordHash,
		PinHash:      pinHash,
	}
	return effect{
		apply: resetFlow,
		finish: func(ctx context.Context) result {
			_, err := call(ctx, e.timeout, func(ctx context.Context) (directory.User, error) {
				return e.dir.Create(ctx, user)
			})
			switch {
			case err == nil:
				return ok(ReplyRegistered)
			case errors.Is(err, directory.ErrDuplicateEmail):
				return failed(ReplyEmailTaken, err)
			case errors.Is(err, directory.ErrDuplicateSender):
				return failed(ReplyAlreadyRegistered, err)
			default:
				return failed(ReplyRegistrationFailed, err)
			}
		},
	}
}

func loginEmail(_ context.Context, _ *Engine, in input, _ session.Session) effect {
	email := directory.NormalizeEmail(in.text)
	return effect{result: ok(ReplyAskLoginPassword), apply: func(s *session.Session) {
		s.PendingLoginEmail = email
		s.Step = session.StepLoginPassword
	}}
}

func loginPassword(ctx context.Context, e *Engine, in input, snap session.Session) effect {
	matched, err := call(ctx, e.timeout, func(ctx context.Context) (bool, error) {
		user, err := e.dir.FindByEmail(ctx, snap.PendingLoginEmail)
		if errors.Is(err, directory.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return e.gate.Verify(in.text, user.PasswordHash), nil
	})
	switch {
	case err != nil:
		return effect{result: failed(ReplyLoginFailed, err), apply: resetFlow}
	case !matched:
		return effect{result: result{reply: ReplyInvalidLogin, outcome: OutcomeFail}, apply: resetFlow}
	}
	return effect{result: ok(ReplyLoggedIn), apply: func(s *session.Session) {
		s.Authenticated = true
		s.Reset()
	}}
}

// askAI takes effect at the read that chose it; the session is not touched.
func askAI(ctx context.Context, e *Engine, in input, _ session.Session) effect {
	reply, err := call(ctx, e.timeout, func(ctx context.Context) (string, error) {
		return e.ai.Ask(ctx, in.raw)
	})
	if err != nil {
		return effect{result: failed(ReplyAIUnavailable, err)}
	}
	return effect{result: ok(reply)}
}
