// Package errors defines the deterministic error taxonomy shared by the
// identity engine. Every rejection carries a machine-checkable code plus a
// diagnostic context string, so callers can branch on the code and operators
// can read the context.
package errors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure. Codes are stable API; context strings
// are not.
type Code string

const (
	// CodeSelfClaim is returned when an account tries to claim an identity
	// it created itself.
	CodeSelfClaim Code = "SELF_CLAIM"

	// CodeAliasConflict is returned when the target identity is already
	// canonical or aliased under a different account.
	CodeAliasConflict Code = "ALIAS_CONFLICT"

	// CodeAliasCycle is returned when a proposed alias edge would create a
	// resolution cycle.
	CodeAliasCycle Code = "ALIAS_CYCLE"

	// CodePreconditionMissing is returned when the claiming account has no
	// assigned canonical member id. This is a fatal data problem, not a
	// recoverable user error.
	CodePreconditionMissing Code = "PRECONDITION_MISSING"

	// CodeNotFound is returned for unknown groups, expenses, accounts or
	// friend records.
	CodeNotFound Code = "NOT_FOUND"
)

// Error is a coded error with diagnostic context.
type Error struct {
	Code    Code
	Message string
	Context string
}

func (e *Error) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Context)
}

// New creates a coded error without context.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error whose context is formatted from args.
func Newf(code Code, message, format string, args ...any) *Error {
	return &Error{Code: code, Message: message, Context: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code from err, or empty string if err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
