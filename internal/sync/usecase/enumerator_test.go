package usecase

import (
	"context"
	"testing"

	"inbox-agent/internal/sync/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumerateSince_PaginatesAndDedups(t *testing.T) {
	lister := &fakeLister{pages: map[string]*domain.ChangePage{
		"": {
			Records: []domain.ChangeRecord{
				{HistoryID: 101, AddedMessageIDs: []string{"18b", "18a"}},
				{HistoryID: 103, AddedMessageIDs: []string{"18a"}},
			},
			NextPageToken: "p2",
		},
		"p2": {
			Records: []domain.ChangeRecord{
				{HistoryID: 102, AddedMessageIDs: []string{"18c", "18b"}},
				{HistoryID: 104},
			},
		},
	}}

	ids, hwm, err := NewEnumerator(lister, zerolog.Nop()).EnumerateSince(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"18a", "18b", "18c"}, ids)
	assert.Equal(t, uint64(104), hwm)
	assert.Equal(t, 2, lister.calls)
	assert.Equal(t, []uint64{100, 100}, lister.starts)
}

func TestEnumerateSince_EmptyLogKeepsCursor(t *testing.T) {
	lister := &fakeLister{}

	ids, hwm, err := NewEnumerator(lister, zerolog.Nop()).EnumerateSince(context.Background(), 250)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, uint64(250), hwm)
}

func TestEnumerateSince_ExpiredCursor(t *testing.T) {
	lister := &fakeLister{err: &domain.CursorExpiredError{StartHistoryID: 5, Err: errBoom}}

	_, _, err := NewEnumerator(lister, zerolog.Nop()).EnumerateSince(context.Background(), 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCursorExpired)
}

func TestEnumerateSince_GenericError(t *testing.T) {
	lister := &fakeLister{err: errBoom}

	_, _, err := NewEnumerator(lister, zerolog.Nop()).EnumerateSince(context.Background(), 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, domain.ErrCursorExpired)
}

func TestSortMessageIDs(t *testing.T) {
	ids := []string{"1a", "ff", "0b", "100"}
	SortMessageIDs(ids)
	assert.Equal(t, []string{"0b", "1a", "ff", "100"}, ids)

	mixed := []string{"zeta", "alpha"}
	SortMessageIDs(mixed)
	assert.Equal(t, []string{"alpha", "zeta"}, mixed)

	for _, in := range [][]string{{"b", "10", "az"}, {"az", "b", "10"}, {"10", "az", "b"}} {
		SortMessageIDs(in)
		assert.Equal(t, []string{"b", "10", "az"}, in)
	}
}
