package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inbox-agent/internal/sync/domain"
	"inbox-agent/internal/sync/repository"

	"github.com/rs/zerolog"
)

// WatchLeaseManager keeps the mailbox watch registered and records its expiry
// next to the cursor. It never moves the cursor of an existing mailbox.
type WatchLeaseManager struct {
	provider    WatchProvider
	cursors     repository.CursorRepository
	topic       string
	renewBefore time.Duration
	logger      zerolog.Logger
}

func NewWatchLeaseManager(
	provider WatchProvider,
	cursors repository.CursorRepository,
	topic string,
	renewBefore time.Duration,
	logger zerolog.Logger,
) *WatchLeaseManager {
	return &WatchLeaseManager{
		provider:    provider,
		cursors:     cursors,
		topic:       topic,
		renewBefore: renewBefore,
		logger:      logger,
	}
}

// Renew replaces the current watch with a fresh one. The returned history id is only
// stored when no cursor exists yet; otherwise it is a floor for future notifications.
func (m *WatchLeaseManager) Renew(ctx context.Context) (*domain.WatchLease, error) {
	if err := m.provider.Stop(ctx); err != nil {
		m.logger.Debug().Err(err).Msg("stopping previous watch failed, continuing")
	}

	lease, err := m.provider.Watch(ctx, m.topic)
	if err != nil {
		return nil, fmt.Errorf("failed to register watch: %w", err)
	}

	cur, err := m.cursors.RecordWatch(ctx, *lease)
	if err != nil {
		return nil, err
	}

	m.logger.Info().
		Uint64("watch_history_id", lease.HistoryID).
		Uint64("cursor", cur.LastHistoryID).
		Time("expiration", lease.Expiration).
		Msg("watch lease renewed")
	return lease, nil
}

// Stop cancels the watch. The recorded expiry is left in place.
func (m *WatchLeaseManager) Stop(ctx context.Context) error {
	if err := m.provider.Stop(ctx); err != nil {
		return err
	}
	m.logger.Info().Msg("watch stopped")
	return nil
}

// NeedsRenewal reports whether no lease is recorded or it expires within the renewal window.
func (m *WatchLeaseManager) NeedsRenewal(ctx context.Context, now time.Time) (bool, error) {
	cur, err := m.cursors.Load(ctx)
	if errors.Is(err, domain.ErrCursorNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if !cur.HasWatch() {
		return true, nil
	}
	return !cur.WatchExpiration.After(now.Add(m.renewBefore)), nil
}

// Status returns the stored cursor and lease.
func (m *WatchLeaseManager) Status(ctx context.Context) (*domain.SyncCursor, error) {
	return m.cursors.Load(ctx)
}
