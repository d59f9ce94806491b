package repository

import (
	"context"
	"testing"
	"time"

	"inbox-agent/internal/agent/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCheckpoint_GetMissing(t *testing.T) {
	repo := NewMemoryCheckpointRepository()
	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrCheckpointNotFound)
}

func TestMemoryCheckpoint_SaveKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCheckpointRepository()

	cp := &domain.MessageCheckpoint{MessageID: "m1", Stage: domain.StageParsed, Status: domain.StatusInProgress}
	require.NoError(t, repo.Save(ctx, cp))
	firstID := cp.ID
	require.NotEmpty(t, firstID)

	// a fresh struct for the same message is an update, not a second row
	require.NoError(t, repo.Save(ctx, &domain.MessageCheckpoint{MessageID: "m1", Stage: domain.StageDrafted, Status: domain.StatusInProgress}))

	got, err := repo.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, firstID, got.ID)
	assert.Equal(t, domain.StageDrafted, got.Stage)

	// returned value is a copy
	got.Stage = domain.StagePending
	again, _ := repo.Get(ctx, "m1")
	assert.Equal(t, domain.StageDrafted, again.Stage)
}

func TestMemoryCheckpoint_Listing(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCheckpointRepository().(*memoryCheckpointRepository)
	clock := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	save := func(id, status string, attempts int) {
		require.NoError(t, repo.Save(ctx, &domain.MessageCheckpoint{MessageID: id, Status: status, Attempts: attempts}))
	}
	save("a", domain.StatusFailed, 1)
	save("b", domain.StatusFailed, 3)
	save("c", domain.StatusDone, 1)
	save("d", domain.StatusFailed, 2)
	save("e", domain.StatusAbandoned, 1)

	retryable, err := repo.ListRetryable(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, retryable, 2)
	assert.Equal(t, "a", retryable[0].MessageID, "oldest first")
	assert.Equal(t, "d", retryable[1].MessageID)

	failed, err := repo.ListByStatus(ctx, domain.StatusFailed, 2)
	require.NoError(t, err)
	require.Len(t, failed, 2)
	assert.Equal(t, "d", failed[0].MessageID, "newest first")
	assert.Equal(t, "b", failed[1].MessageID)
}
