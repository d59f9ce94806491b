package usecase

import (
	"context"

	"inbox-agent/internal/agent/domain"
)

// MailboxProvider is the part of the mailbox API the pipeline reads from and writes to.
type MailboxProvider interface {
	GetMessage(ctx context.Context, messageID string) (*domain.Message, error)
	HasLabel(ctx context.Context, messageID, labelName string) (bool, error)
	CreateDraft(ctx context.Context, messageID string, reply *domain.Reply) (string, error)
	// MarkDrafted adds the label and removes UNREAD
	MarkDrafted(ctx context.Context, messageID, labelName string) error
}

// Retriever returns up to k knowledge snippets relevant to query.
type Retriever interface {
	TopK(ctx context.Context, query string, k int) ([]string, error)
}

// ReplyGenerator produces reply text for a prompt.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, prompt string) (string, error)
}

// ConfidenceScorer rates a generated draft.
type ConfidenceScorer interface {
	Score(draft, context string) float64
}

// DraftNotifier is told about every draft stored in the mailbox.
type DraftNotifier interface {
	NotifyDrafted(ctx context.Context, persisted domain.Persisted) error
}

// PipelineUsecase runs messages through the drafting pipeline and manages failed ones.
type PipelineUsecase interface {
	Process(ctx context.Context, messageID string) (skipped bool, err error)
	// Retry runs the message again even if it was abandoned
	Retry(ctx context.Context, messageID string) (*domain.MessageCheckpoint, error)
	// RetryFailed re-drives failed messages that still have attempts left
	RetryFailed(ctx context.Context) (int, error)
	// ListFailed returns failed and abandoned checkpoints
	ListFailed(ctx context.Context, limit int) ([]domain.MessageCheckpoint, error)
}
