package usecase

import (
	"context"

	"inbox-agent/internal/sync/domain"
)

// ChangeLister pages the mailbox change log.
type ChangeLister interface {
	// ListHistory returns *domain.CursorExpiredError when startHistoryID is no longer retained.
	ListHistory(ctx context.Context, startHistoryID uint64, pageToken string) (*domain.ChangePage, error)
}

// WatchProvider registers and cancels mailbox push notifications.
type WatchProvider interface {
	Watch(ctx context.Context, topicName string) (*domain.WatchLease, error)
	Stop(ctx context.Context) error
}

// MessageProcessor runs one message through the drafting pipeline.
// skipped is true when the message needed no work (already done or running elsewhere).
type MessageProcessor interface {
	Process(ctx context.Context, messageID string) (skipped bool, err error)
}

// ChangeEnumerator lists message ids added since a cursor.
type ChangeEnumerator interface {
	EnumerateSince(ctx context.Context, cursor uint64) ([]string, uint64, error)
}

// RoundRunner runs a reconciliation round for one notification.
type RoundRunner interface {
	Reconcile(ctx context.Context, n domain.Notification) (*domain.RoundResult, error)
}
