package application

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/oksasatya/identity-core/internal/domain/apperr"
)

const (
	PasswordMinLength = 8
	PasswordMaxLength = 20
	emailMaxLength    = 255
)

// usernamePattern allows 8 to 20 lowercase letters, digits and dots, with no
// dot at either end.
var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.]{6,18}[a-z0-9]$`)

var validate = validator.New()

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) string {
	if email == "" {
		return "Email can't be empty"
	}
	if len(email) > emailMaxLength {
		return "Email is too long"
	}
	if err := validate.Var(email, "email"); err != nil {
		return "Invalid email format"
	}
	return ""
}

func validatePassword(password string) string {
	n := utf8.RuneCountInString(password)
	switch {
	case n < PasswordMinLength:
		return "Password must be at least 8 characters long"
	case n > PasswordMaxLength:
		return "Password must be at most 20 characters long"
	}
	return ""
}

// ValidUsername reports whether s is an acceptable username.
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

func validateUsername(username string) string {
	n := len(username)
	switch {
	case n < 8:
		return "Username must be at least 8 characters long"
	case n > 20:
		return "Username must be at most 20 characters long"
	case !ValidUsername(username):
		return "Username should contain only lowercase letters, numbers, and dots. Dots cannot be at the beginning or end."
	}
	return ""
}

func validateRegistration(email, password, username string) error {
	verr := &apperr.ValidationError{}
	if msg := validateEmail(email); msg != "" {
		verr.Add(apperr.FieldEmail, msg)
	}
	if msg := validatePassword(password); msg != "" {
		verr.Add(apperr.FieldPassword, msg)
	}
	if msg := validateUsername(username); msg != "" {
		verr.Add(apperr.FieldUsername, msg)
	}
	return verr.OrNil()
}
