// Package directory stores registered users and enforces that both the sender
// identifier and the email address are unique.
package directory

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrDuplicateEmail is returned by Create when the email is already registered.
	ErrDuplicateEmail = errors.New("directory: email already registered")
	// ErrDuplicateSender is returned by Create when the sender already owns an account.
	ErrDuplicateSender = errors.New("directory: sender already registered")
	// ErrNotFound is returned by lookups that match no user.
	ErrNotFound = errors.New("directory: user not found")
)

// User is a registered account.
type User struct {
	ID           string    `db:"id"`
	SenderID     string    `db:"sender_id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	PinHash      string    `db:"pin_hash"`
	Balance      int64     `db:"balance"`
	Verified     bool      `db:"is_verified"`
	CreatedAt    time.Time `db:"-"`
}

// NewUser carries the fields needed to register an account.
type NewUser struct {
	SenderID     string
	Email        string
	PasswordHash string
	PinHash      string
}

// Directory creates and looks up users.
type Directory interface {
	Create(ctx context.Context, u NewUser) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsDuplicate reports whether err is one of the uniqueness errors returned by Create.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrDuplicateSender)
}
