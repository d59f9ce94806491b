package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMessageInFlight is returned when another round is already running the message.
	ErrMessageInFlight = errors.New("message already in flight")
	// ErrEmptyGeneration is the cause of a GenerationError when the model returned nothing.
	ErrEmptyGeneration = errors.New("generation returned empty text")
	// ErrCheckpointNotFound is returned by checkpoint stores for unknown messages.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

// ProviderFetchError means the message could not be read from the mailbox.
// Permanent is set when the message no longer exists or access is denied.
type ProviderFetchError struct {
	MessageID string
	Permanent bool
	Err       error
}

func (e *ProviderFetchError) Error() string {
	return fmt.Sprintf("fetch message %s: %v", e.MessageID, e.Err)
}

func (e *ProviderFetchError) Unwrap() error { return e.Err }

// ProviderWriteError means creating the draft or applying labels failed.
type ProviderWriteError struct {
	MessageID string
	Op        string
	Err       error
}

func (e *ProviderWriteError) Error() string {
	return fmt.Sprintf("%s for message %s: %v", e.Op, e.MessageID, e.Err)
}

func (e *ProviderWriteError) Unwrap() error { return e.Err }

// GenerationError means the reply could not be generated. No fallback text is produced.
type GenerationError struct {
	MessageID string
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate reply for message %s: %v", e.MessageID, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsPermanent reports whether retrying the message can never succeed.
func IsPermanent(err error) bool {
	var fetchErr *ProviderFetchError
	return errors.As(err, &fetchErr) && fetchErr.Permanent
}
