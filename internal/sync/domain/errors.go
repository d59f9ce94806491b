package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCursorNotFound is returned when no cursor has been stored yet.
	ErrCursorNotFound = errors.New("sync cursor not found")
	// ErrCursorExpired matches any *CursorExpiredError.
	ErrCursorExpired = errors.New("history cursor expired")
)

// CursorExpiredError means the provider's change log no longer covers StartHistoryID.
type CursorExpiredError struct {
	StartHistoryID uint64
	Err            error
}

func (e *CursorExpiredError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("history cursor %d expired: %v", e.StartHistoryID, e.Err)
	}
	return fmt.Sprintf("history cursor %d expired", e.StartHistoryID)
}

func (e *CursorExpiredError) Unwrap() error { return e.Err }

func (e *CursorExpiredError) Is(target error) bool {
	return target == ErrCursorExpired
}
