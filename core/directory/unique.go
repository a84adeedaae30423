package directory

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// uniqueViolation translates a driver error into ErrDuplicateSender or
// ErrDuplicateEmail, or returns nil when err is not a unique violation.
func uniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code != pqUniqueViolation {
			return nil
		}
		return byColumn(pqErr.Constraint + " " + pqErr.Detail)
	}
	// modernc.org/sqlite reports "UNIQUE constraint failed: users.email".
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return byColumn(msg)
	}
	return nil
}

func byColumn(text string) error {
	switch {
	case strings.Contains(text, "sender_id"):
		return ErrDuplicateSender
	case strings.Contains(text, "email"):
		return ErrDuplicateEmail
	default:
		return ErrDuplicateSender
	}
}
