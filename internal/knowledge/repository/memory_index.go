package repository

import (
	"context"
	"sort"
	"sync"

	"inbox-agent/internal/knowledge/domain"
	"inbox-agent/pkg/fuzzy"
)

// MemoryIndex ranks snippets by fuzzy term overlap. Used when no vector store is configured.
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks []domain.KnowledgeChunk
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

func (m *MemoryIndex) Add(_ context.Context, chunks []domain.KnowledgeChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, chunks...)
	return nil
}

// Query drops snippets that share no term with the query. Ties keep insertion order.
func (m *MemoryIndex) Query(_ context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return []domain.ScoredChunk{}, nil
	}

	m.mu.RLock()
	hits := make([]domain.ScoredChunk, 0)
	for _, c := range m.chunks {
		if score := fuzzy.Score(query, c.Text); score > 0 {
			hits = append(hits, domain.ScoredChunk{KnowledgeChunk: c, Score: score})
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of stored snippets.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}
