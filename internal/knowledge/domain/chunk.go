package domain

import (
	"errors"
	"time"
)

// KnowledgeChunk is one immutable snippet in the append-only knowledge index.
// Duplicates are tolerated; chunks are never updated or deleted.
type KnowledgeChunk struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ScoredChunk is a query hit. Higher Score is more relevant; Distance is set by
// vector backends, where lower is closer.
type ScoredChunk struct {
	KnowledgeChunk
	Score    float64 `json:"score"`
	Distance float64 `json:"distance,omitempty"`
}

// ErrNoSnippets is returned when an ingest request has nothing left after trimming.
var ErrNoSnippets = errors.New("no non-empty snippets to ingest")
