package domain

import (
	"errors"
	"fmt"
)

// ErrUnauthorized matches every *AuthError.
var ErrUnauthorized = errors.New("unauthorized")

// AuthError is a rejected credential: missing, malformed, expired, or issued by the wrong party.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unauthorized: %s: %v", e.Reason, e.Err)
	}
	return "unauthorized: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == ErrUnauthorized }

func NewAuthError(reason string, err error) *AuthError {
	return &AuthError{Reason: reason, Err: err}
}
