package usecase

import (
	"context"
	"testing"

	syncdomain "inbox-agent/internal/sync/domain"
	syncrepo "inbox-agent/internal/sync/repository"
	syncusecase "inbox-agent/internal/sync/usecase"
	"inbox-agent/pkg/blobstore"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type singlePageLister struct {
	page *syncdomain.ChangePage
}

func (l *singlePageLister) ListHistory(_ context.Context, _ uint64, _ string) (*syncdomain.ChangePage, error) {
	return l.page, nil
}

func TestRound_OneMessageFailsAtParse(t *testing.T) {
	ctx := context.Background()
	cursors := syncrepo.NewBlobCursorRepository(blobstore.NewMemoryStore(), "cursor.json")
	_, _, err := cursors.Initialize(ctx, 100)
	require.NoError(t, err)

	lister := &singlePageLister{page: &syncdomain.ChangePage{Records: []syncdomain.ChangeRecord{
		{HistoryID: 103, AddedMessageIDs: []string{"a"}},
		{HistoryID: 105, AddedMessageIDs: []string{"b"}},
	}}}

	mailbox := newFakeMailbox(pricingMessage("a"), pricingMessage("b"))
	mailbox.fetchErrs = map[string]error{"b": errBoom}
	gen := &fakeGenerator{text: "Hello"}
	pipeline, checkpoints := newTestPipeline(mailbox, nil, gen)

	reconciler := syncusecase.NewReconciler(cursors, syncusecase.NewEnumerator(lister, zerolog.Nop()), pipeline, 2, zerolog.Nop())
	result, err := reconciler.Reconcile(ctx, syncdomain.Notification{HistoryID: 105})
	require.NoError(t, err)

	assert.Equal(t, syncdomain.OutcomeCompleted, result.Outcome)
	assert.Equal(t, uint64(105), result.FinalCursor)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)

	cur, err := cursors.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(105), cur.LastHistoryID)

	assert.True(t, loadCheckpoint(t, checkpoints, "a").Done)
	b := loadCheckpoint(t, checkpoints, "b")
	assert.False(t, b.Done)
	assert.Equal(t, 1, mailbox.getCount("b"), "not retried within the round")
	assert.False(t, mailbox.hasLabel("b", draftLabel))
	assert.Equal(t, 1, mailbox.draftCount())

	// a later notification with nothing new does not touch either message again
	lister.page = &syncdomain.ChangePage{}
	_, err = reconciler.Reconcile(ctx, syncdomain.Notification{HistoryID: 106})
	require.NoError(t, err)
	assert.Equal(t, 1, mailbox.getCount("a"))
	assert.Equal(t, 1, mailbox.getCount("b"))
}
