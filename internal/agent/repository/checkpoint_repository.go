package repository

import (
	"context"
	"errors"
	"time"

	"inbox-agent/internal/agent/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// checkpointRepository implements CheckpointRepository on gorm
type checkpointRepository struct {
	db *gorm.DB
}

// NewCheckpointRepository creates a new gorm-backed checkpoint repository
func NewCheckpointRepository(db *gorm.DB) CheckpointRepository {
	return &checkpointRepository{db: db}
}

func (r *checkpointRepository) Get(ctx context.Context, messageID string) (*domain.MessageCheckpoint, error) {
	var cp domain.MessageCheckpoint
	err := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&cp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCheckpointNotFound
		}
		return nil, err
	}
	return &cp, nil
}

func (r *checkpointRepository) Save(ctx context.Context, cp *domain.MessageCheckpoint) error {
	now := time.Now()
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now

	// Upsert on message_id; the stored row keeps its original id and created_at
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "message_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"stage", "subject", "sender", "body", "thread_id", "rfc822_message_id",
			"context", "draft_text", "confidence", "draft_id", "done",
			"status", "attempts", "last_error", "updated_at",
		}),
	}).Create(cp).Error
}

func (r *checkpointRepository) ListByStatus(ctx context.Context, status string, limit int) ([]domain.MessageCheckpoint, error) {
	var cps []domain.MessageCheckpoint
	query := r.db.WithContext(ctx).Where("status = ?", status).Order("updated_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&cps).Error; err != nil {
		return nil, err
	}
	return cps, nil
}

func (r *checkpointRepository) ListRetryable(ctx context.Context, maxAttempts, limit int) ([]domain.MessageCheckpoint, error) {
	var cps []domain.MessageCheckpoint
	query := r.db.WithContext(ctx).
		Where("status = ? AND attempts < ?", domain.StatusFailed, maxAttempts).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&cps).Error; err != nil {
		return nil, err
	}
	return cps, nil
}
