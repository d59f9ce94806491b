package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inbox-agent/internal/knowledge/domain"
	"inbox-agent/internal/knowledge/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type knowledgeUsecase struct {
	index  repository.KnowledgeIndex
	logger zerolog.Logger
	now    func() time.Time
}

func NewKnowledgeUsecase(index repository.KnowledgeIndex, logger zerolog.Logger) KnowledgeUsecase {
	return &knowledgeUsecase{index: index, logger: logger, now: time.Now}
}

func (u *knowledgeUsecase) Ingest(ctx context.Context, snippets []string, source string) (int, error) {
	now := u.now()
	chunks := make([]domain.KnowledgeChunk, 0, len(snippets))
	for _, s := range snippets {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		chunks = append(chunks, domain.KnowledgeChunk{
			ID:        uuid.New().String(),
			Text:      s,
			Source:    source,
			CreatedAt: now,
		})
	}
	if len(chunks) == 0 {
		return 0, domain.ErrNoSnippets
	}

	if err := u.index.Add(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to ingest snippets: %w", err)
	}
	u.logger.Info().Int("count", len(chunks)).Str("source", source).Msg("knowledge snippets ingested")
	return len(chunks), nil
}

func (u *knowledgeUsecase) TopK(ctx context.Context, query string, k int) ([]string, error) {
	hits, err := u.Query(ctx, query, k)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(hits))
	for _, h := range hits {
		texts = append(texts, h.Text)
	}
	return texts, nil
}

func (u *knowledgeUsecase) Query(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" || k <= 0 {
		return []domain.ScoredChunk{}, nil
	}
	hits, err := u.index.Query(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge index: %w", err)
	}
	return hits, nil
}
