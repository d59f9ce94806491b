package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"inbox-agent/internal/operator/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceTokenRepository defines the interface for operator device token operations
type DeviceTokenRepository interface {
	SaveToken(ctx context.Context, token, deviceInfo string) error
	ListTokens(ctx context.Context) ([]domain.DeviceToken, error)
	DeleteToken(ctx context.Context, token string) error
}

// deviceTokenRepository implements DeviceTokenRepository on gorm
type deviceTokenRepository struct {
	db *gorm.DB
}

// NewDeviceTokenRepository creates a new instance of deviceTokenRepository
func NewDeviceTokenRepository(db *gorm.DB) DeviceTokenRepository {
	return &deviceTokenRepository{db: db}
}

// SaveToken saves or updates a device token (atomic upsert)
func (r *deviceTokenRepository) SaveToken(ctx context.Context, token, deviceInfo string) error {
	now := time.Now()
	record := &domain.DeviceToken{
		ID:         uuid.New().String(),
		Token:      token,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// Atomic upsert: INSERT ... ON CONFLICT (token) DO UPDATE
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"device_info", "updated_at"}),
	}).Create(record).Error
}

func (r *deviceTokenRepository) ListTokens(ctx context.Context) ([]domain.DeviceToken, error) {
	var tokens []domain.DeviceToken
	if err := r.db.WithContext(ctx).Order("created_at").Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

// DeleteToken removes a specific device token
func (r *deviceTokenRepository) DeleteToken(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Where("token = ?", token).Delete(&domain.DeviceToken{}).Error
}

// memoryDeviceTokenRepository keeps tokens in process memory
type memoryDeviceTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]domain.DeviceToken
}

// NewMemoryDeviceTokenRepository returns a repository seeded with tokens
func NewMemoryDeviceTokenRepository(seed ...string) DeviceTokenRepository {
	r := &memoryDeviceTokenRepository{tokens: make(map[string]domain.DeviceToken)}
	for _, t := range seed {
		_ = r.SaveToken(context.Background(), t, "configured")
	}
	return r
}

func (r *memoryDeviceTokenRepository) SaveToken(_ context.Context, token, deviceInfo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if existing, ok := r.tokens[token]; ok {
		existing.DeviceInfo = deviceInfo
		existing.UpdatedAt = now
		r.tokens[token] = existing
		return nil
	}
	r.tokens[token] = domain.DeviceToken{
		ID:         uuid.New().String(),
		Token:      token,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return nil
}

func (r *memoryDeviceTokenRepository) ListTokens(_ context.Context) ([]domain.DeviceToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.DeviceToken, 0, len(r.tokens))
	for _, t := range r.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}

func (r *memoryDeviceTokenRepository) DeleteToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}
