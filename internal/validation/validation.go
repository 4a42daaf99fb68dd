package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/secretkeeper/internal/constants"
)

// NormalizeEmail trims surrounding whitespace. Case is preserved: the store
// matches emails exactly.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// ValidateEmail checks the email submitted as a username
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if len(email) > constants.MaxEmailLength {
		return fmt.Errorf("email must be %d characters or less", constants.MaxEmailLength)
	}
	if !utf8.ValidString(email) {
		return errors.New("email must be valid UTF-8")
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return errors.New("email cannot contain whitespace")
	}
	return nil
}

// ValidatePassword checks a password before it is hashed
func ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	if len(password) > constants.MaxPasswordBytes {
		return fmt.Errorf("password must be %d bytes or less", constants.MaxPasswordBytes)
	}
	return nil
}

// ValidateSecret checks a submitted secret
func ValidateSecret(secret string) error {
	if !utf8.ValidString(secret) {
		return errors.New("secret must be valid UTF-8")
	}
	return nil
}
