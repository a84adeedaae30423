package session

import "time"

// Step names the input the engine expects next from a sender.
type Step string

const (
	// StepNone means no multi-step dialog is pending.
	StepNone             Step = "none"
	StepRegisterEmail    Step = "register_email"
	StepRegisterPassword Step = "register_password"
	StepRegisterPIN      Step = "register_pin"
	StepLoginEmail       Step = "login_email"
	StepLoginPassword    Step = "login_password"
)

// Steps lists every valid step value.
var Steps = []Step{
	StepNone,
	StepRegisterEmail,
	StepRegisterPassword,
	StepRegisterPIN,
	StepLoginEmail,
	StepLoginPassword,
}

// Valid reports whether s is one of the known steps.
func (s Step) Valid() bool {
	for _, known := range Steps {
		if s == known {
			return true
		}
	}
	return false
}

// Session is the dialog state of a single sender.
type Session struct {
	SenderID      string
	Step          Step
	Authenticated bool
	AIMode        bool

	// Scratch fields filled mid-flow. Empty whenever Step is StepNone.
	PendingEmail        string
	PendingPasswordHash string
	PendingLoginEmail   string

	// Version grows by one with every committed change.
	Version   uint64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reset ends any pending flow and drops scratch data.
// Authenticated and AIMode are left as they are.
func (s *Session) Reset() {
	s.Step = StepNone
	s.clearScratch()
}

// InFlow reports whether a registration or login flow is pending.
func (s Session) InFlow() bool {
	return s.Step != StepNone
}

func (s *Session) clearScratch() {
	s.PendingEmail = ""
	s.PendingPasswordHash = ""
	s.PendingLoginEmail = ""
}

// dialogState is the part of a session that mutations are compared on.
type dialogState struct {
	step          Step
	authenticated bool
	aiMode        bool
	email         string
	passwordHash  string
	loginEmail    string
}

func (s *Session) state() dialogState {
	return dialogState{
		step:          s.Step,
		authenticated: s.Authenticated,
		aiMode:        s.AIMode,
		email:         s.PendingEmail,
		passwordHash:  s.PendingPasswordHash,
		loginEmail:    s.PendingLoginEmail,
	}
}

func newSession(senderID string, now time.Time) Session {
	return Session{
		SenderID:  senderID,
		Step:      StepNone,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
