package conversation

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/arafat-telecom/chatbot/core/directory"
)

// MinPasswordLength is the shortest accepted registration password, in characters.
const MinPasswordLength = 6

// MaxPasswordBytes is the longest password bcrypt will hash.
const MaxPasswordBytes = 72

// PINLength is the exact length of a transaction PIN.
const PINLength = 4

// validEmail accepts a bare address such as "a@x.com" and returns it normalized.
func validEmail(text string) (string, bool) {
	if text == "" || strings.ContainsAny(text, " <>") {
		return "", false
	}
	addr, err := mail.ParseAddress(text)
	if err != nil || addr.Address != text {
		return "", false
	}
	local, domain, ok := strings.Cut(addr.Address, "@")
	if !ok || local == "" || domain == "" {
		return "", false
	}
	return directory.NormalizeEmail(addr.Address), true
}

func validPassword(text string) bool {
	return utf8.RuneCountInString(text) >= MinPasswordLength && len(text) <= MaxPasswordBytes
}

func validPIN(text string) bool {
	if len(text) != PINLength {
		return false
	}
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return false
		}
	}
	return true
}
