package usecase

import (
	"context"

	"inbox-agent/internal/knowledge/domain"
)

// KnowledgeUsecase ingests snippets and serves top-K context for drafting.
type KnowledgeUsecase interface {
	// Ingest trims snippets, drops empty ones and returns how many were stored
	Ingest(ctx context.Context, snippets []string, source string) (int, error)
	// TopK returns the texts of the k best snippets; an empty query returns nothing
	TopK(ctx context.Context, query string, k int) ([]string, error)
	// Query is TopK with ids and scores, for debugging retrieval
	Query(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}
