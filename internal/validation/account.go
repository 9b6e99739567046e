// Package validation holds input rules shared by forms and admin tooling.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxUsernameLength = 150
	MaxEmailLength    = 254
)

var (
	usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}@.+\-_]+$`)
	emailCheck    = validator.New()

	commonPasswords = map[string]struct{}{
		"password":   {},
		"password1":  {},
		"12345678":   {},
		"123456789":  {},
		"qwerty123":  {},
		"iloveyou":   {},
		"11111111":   {},
		"sunshine":   {},
		"princess":   {},
		"football":   {},
		"baseball":   {},
		"superman":   {},
		"trustno1":   {},
		"letmein1":   {},
		"welcome1":   {},
		"qwertyuiop": {},
	}
)

// ValidateUsername allows up to 150 letters, digits and @/./+/-/_ characters.
func ValidateUsername(username string) error {
	if username == "" {
		return errors.New("This field is required.")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return fmt.Errorf("Ensure this value has at most %d characters.", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return errors.New("Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
	return nil
}

// ValidateEmail accepts an empty value; otherwise the address must be well formed.
func ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	if len(email) > MaxEmailLength {
		return fmt.Errorf("Ensure this value has at most %d characters.", MaxEmailLength)
	}
	if err := emailCheck.Var(email, "email"); err != nil {
		return errors.New("Enter a valid email address.")
	}
	return nil
}

// ValidatePassword returns every rule the password breaks.
func ValidatePassword(password, username string) []string {
	var problems []string

	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		problems = append(problems, fmt.Sprintf("This password is too short. It must contain at least %d characters.", MinPasswordLength))
	}
	if n > MaxPasswordLength {
		problems = append(problems, fmt.Sprintf("This password is too long. It must contain at most %d characters.", MaxPasswordLength))
	}
	if _, common := commonPasswords[strings.ToLower(password)]; common {
		problems = append(problems, "This password is too common.")
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		problems = append(problems, "This password is entirely numeric.")
	}
	if username != "" && len(username) >= 3 && strings.Contains(strings.ToLower(password), strings.ToLower(username)) {
		problems = append(problems, "The password is too similar to the username.")
	}

	return problems
}
