package identity

import (
	"errors"
	"fmt"
)

// Codes reported by the provider. Clients map them to messages.
const (
	CodeUserNotFound      = "auth/user-not-found"
	CodeWrongPassword     = "auth/wrong-password"
	CodeEmailAlreadyInUse = "auth/email-already-in-use"
	CodeInvalidEmail      = "auth/invalid-email"
	CodeWeakPassword      = "auth/weak-password"
	CodePasswordTooLong   = "auth/password-too-long"
	CodeInvalidToken      = "auth/invalid-token"
	CodeInternal          = "auth/internal-error"
)

// Error carries a provider code plus the underlying cause, if any.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code string, err error) *Error {
	return &Error{Code: code, Err: err}
}

// CodeOf returns the provider code of err, or "" when err is not an *Error.
func CodeOf(err error) string {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ""
}
