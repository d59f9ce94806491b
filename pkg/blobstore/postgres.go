package blobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlobRecord is the gorm model backing PostgresStore.
type BlobRecord struct {
	Key        string    `gorm:"primaryKey;size:255"`
	Data       []byte    `gorm:"not null"`
	Generation int64     `gorm:"not null"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (BlobRecord) TableName() string { return "blob_objects" }

// PostgresStore implements Store on a single table, guarding updates with
// "WHERE generation = ?" so the row count tells whether the swap happened.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Read(ctx context.Context, key string) (*Object, error) {
	var rec BlobRecord
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("unable to read blob %s: %w", key, err)
	}
	return &Object{Data: rec.Data, Generation: rec.Generation}, nil
}

func (s *PostgresStore) Write(ctx context.Context, key string, data []byte, ifGeneration int64) (int64, error) {
	now := time.Now()

	if ifGeneration == 0 {
		rec := BlobRecord{Key: key, Data: data, Generation: 1, UpdatedAt: now}
		result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
		if result.Error != nil {
			return 0, fmt.Errorf("unable to create blob %s: %w", key, result.Error)
		}
		if result.RowsAffected == 0 {
			return 0, ErrPreconditionFailed
		}
		return 1, nil
	}

	next := ifGeneration + 1
	result := s.db.WithContext(ctx).Model(&BlobRecord{}).
		Where("key = ? AND generation = ?", key, ifGeneration).
		Updates(map[string]interface{}{
			"data":       data,
			"generation": next,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("unable to update blob %s: %w", key, result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, ErrPreconditionFailed
	}
	return next, nil
}
