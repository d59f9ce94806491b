package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"inbox-agent/internal/agent/domain"

	"github.com/google/uuid"
)

// memoryCheckpointRepository keeps checkpoints in process memory. Used when no
// database is configured and in tests.
type memoryCheckpointRepository struct {
	mu  sync.RWMutex
	cps map[string]domain.MessageCheckpoint
	now func() time.Time
}

func NewMemoryCheckpointRepository() CheckpointRepository {
	return &memoryCheckpointRepository{
		cps: make(map[string]domain.MessageCheckpoint),
		now: time.Now,
	}
}

func (r *memoryCheckpointRepository) Get(_ context.Context, messageID string) (*domain.MessageCheckpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp, ok := r.cps[messageID]
	if !ok {
		return nil, domain.ErrCheckpointNotFound
	}
	return &cp, nil
}

func (r *memoryCheckpointRepository) Save(_ context.Context, cp *domain.MessageCheckpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if existing, ok := r.cps[cp.MessageID]; ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	}
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	r.cps[cp.MessageID] = *cp
	return nil
}

func (r *memoryCheckpointRepository) ListByStatus(_ context.Context, status string, limit int) ([]domain.MessageCheckpoint, error) {
	out := r.filter(func(cp domain.MessageCheckpoint) bool { return cp.Status == status })
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return truncate(out, limit), nil
}

func (r *memoryCheckpointRepository) ListRetryable(_ context.Context, maxAttempts, limit int) ([]domain.MessageCheckpoint, error) {
	out := r.filter(func(cp domain.MessageCheckpoint) bool {
		return cp.Status == domain.StatusFailed && cp.Attempts < maxAttempts
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return truncate(out, limit), nil
}

func (r *memoryCheckpointRepository) filter(keep func(domain.MessageCheckpoint) bool) []domain.MessageCheckpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.MessageCheckpoint, 0)
	for _, cp := range r.cps {
		if keep(cp) {
			out = append(out, cp)
		}
	}
	// map order is random; message id breaks ties between equal timestamps
	sort.Slice(out, func(i, j int) bool { return out[i].MessageID < out[j].MessageID })
	return out
}

func truncate(cps []domain.MessageCheckpoint, limit int) []domain.MessageCheckpoint {
	if limit > 0 && len(cps) > limit {
		return cps[:limit]
	}
	return cps
}
