package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCursorExpiredError_Matching(t *testing.T) {
	cause := errors.New("404 not found")
	err := fmt.Errorf("enumerate: %w", &CursorExpiredError{StartHistoryID: 42, Err: cause})

	assert.True(t, errors.Is(err, ErrCursorExpired))
	assert.True(t, errors.Is(err, cause))

	var expired *CursorExpiredError
	assert.True(t, errors.As(err, &expired))
	assert.Equal(t, uint64(42), expired.StartHistoryID)
	assert.Contains(t, err.Error(), "history cursor 42 expired")
}

func TestExpirationFromMillis(t *testing.T) {
	assert.True(t, ExpirationFromMillis(0).IsZero())
	assert.Equal(t, int64(1700000000000), ExpirationFromMillis(1700000000000).UnixMilli())
}
