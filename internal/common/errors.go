// Package common defines shared sentinel errors and small helpers used across
// gophvault layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Vault lifecycle errors.
	ErrorAlreadyInitialized = errors.New("vault already initialized")
	ErrorNotInitialized     = errors.New("vault not initialized")

	// Auth errors (master password or backup key did not verify).
	ErrorUnauthorized     = errors.New("unauthorized")
	ErrorInvalidBackupKey = &wrappedSentinel{msg: "invalid backup key", parent: ErrorUnauthorized}

	// Input errors.
	ErrorValidation   = errors.New("validation error")
	ErrorInvalidInput = errors.New("invalid input")

	// Crypto errors.
	ErrorDecryption = errors.New("decryption failed")
)

// wrappedSentinel is a sentinel that also matches a broader parent sentinel,
// so ErrorInvalidBackupKey satisfies errors.Is(err, ErrorUnauthorized).
type wrappedSentinel struct {
	msg    string
	parent error
}

func (e *wrappedSentinel) Error() string { return e.msg }
func (e *wrappedSentinel) Unwrap() error { return e.parent }

// ValidationError reports every input rule a request violated.
// It matches ErrorValidation via errors.Is.
type ValidationError struct {
	Rules []string
}

// NewValidationError returns a *ValidationError for the given rules, or nil
// when no rule was violated.
func NewValidationError(rules ...string) error {
	if len(rules) == 0 {
		return nil
	}
	return &ValidationError{Rules: rules}
}

func (e *ValidationError) Error() string {
	return ErrorValidation.Error() + ": " + strings.Join(e.Rules, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrorValidation }
