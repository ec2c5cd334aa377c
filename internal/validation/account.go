package validation

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"
)

// UsernamePattern латиница, цифры и '_' длиной от MinUsernameLen до MaxUsernameLen
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

const (
	// MinUsernameLen минимальная длина username
	MinUsernameLen = 3
	// MaxUsernameLen максимальная длина username
	MaxUsernameLen = 32
	// MinPasswordLen минимальная длина пароля в символах
	MinPasswordLen = 12
)

var (
	// ErrInvalidUsername wraps every username rule violation
	ErrInvalidUsername = errors.New("invalid username")
	// ErrWeakPassword wraps every password rule violation
	ErrWeakPassword = errors.New("weak password")
)

// ValidateUsername checks the account name shared by all devices of a user.
// The name is also part of the key derivation input, so it is case sensitive.
func ValidateUsername(username string) error {
	switch n := len(username); {
	case n == 0:
		return fmt.Errorf("%w: username cannot be empty", ErrInvalidUsername)
	case n < MinUsernameLen:
		return fmt.Errorf("%w: username must be at least %d characters long", ErrInvalidUsername, MinUsernameLen)
	case n > MaxUsernameLen:
		return fmt.Errorf("%w: username must not exceed %d characters", ErrInvalidUsername, MaxUsernameLen)
	case !UsernamePattern.MatchString(username):
		return fmt.Errorf("%w: username can only contain letters, numbers and underscores", ErrInvalidUsername)
	}
	return nil
}

// ValidatePassword проверяет длину пароля в символах, а не байтах
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password cannot be empty", ErrWeakPassword)
	}
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrWeakPassword, MinPasswordLen)
	}
	return nil
}
