package repo

import (
	"net/mail"
	"strings"
)

const MinPasswordLength = 6

// NormalizeEmail trims and lower-cases an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateCredentials checks a sign-up request before it reaches storage.
func ValidateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrorInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return ErrorWeakPassword
	}
	return nil
}
