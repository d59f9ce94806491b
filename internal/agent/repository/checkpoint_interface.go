package repository

import (
	"context"

	"inbox-agent/internal/agent/domain"
)

// CheckpointRepository defines the interface for pipeline checkpoint storage
type CheckpointRepository interface {
	// Get returns domain.ErrCheckpointNotFound for unknown messages
	Get(ctx context.Context, messageID string) (*domain.MessageCheckpoint, error)
	// Save inserts or replaces the checkpoint keyed by message id
	Save(ctx context.Context, cp *domain.MessageCheckpoint) error
	// ListByStatus returns checkpoints with the given status, most recently updated first
	ListByStatus(ctx context.Context, status string, limit int) ([]domain.MessageCheckpoint, error)
	// ListRetryable returns failed checkpoints with fewer than maxAttempts attempts, oldest first
	ListRetryable(ctx context.Context, maxAttempts, limit int) ([]domain.MessageCheckpoint, error)
}
