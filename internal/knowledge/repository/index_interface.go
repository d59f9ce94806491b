package repository

import (
	"context"

	"inbox-agent/internal/knowledge/domain"
)

// KnowledgeIndex stores snippets and returns the closest ones to a query.
type KnowledgeIndex interface {
	Add(ctx context.Context, chunks []domain.KnowledgeChunk) error
	// Query returns at most k hits, best first
	Query(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}
