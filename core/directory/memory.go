package directory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Directory for development and tests.
type Memory struct {
	mu       sync.RWMutex
	bySender map[string]User
	byEmail  map[string]string
	now      func() time.Time
}

// NewMemory returns an empty Memory directory.
func NewMemory() *Memory {
	return &Memory{
		bySender: make(map[string]User),
		byEmail:  make(map[string]string),
		now:      time.Now,
	}
}

// Create registers u. An existing sender is reported before an existing email.
func (m *Memory) Create(ctx context.Context, u NewUser) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	email := NormalizeEmail(u.Email)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bySender[u.SenderID]; ok {
		return User{}, ErrDuplicateSender
	}
	if _, ok := m.byEmail[email]; ok {
		return User{}, ErrDuplicateEmail
	}
	user := User{
		ID:           uuid.NewString(),
		SenderID:     u.SenderID,
		Email:        email,
		PasswordHash: u.PasswordHash,
		PinHash:      u.PinHash,
		CreatedAt:    m.now().UTC(),
	}
	m.bySender[user.SenderID] = user
	m.byEmail[email] = user.SenderID
	return user, nil
}

// FindByEmail looks a user up by email, ignoring case.
func (m *Memory) FindByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sender, ok := m.byEmail[NormalizeEmail(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return m.bySender[sender], nil
}

// Len returns the number of registered users.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bySender)
}
