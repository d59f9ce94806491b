package scheduler

import (
	"context"
	"sync"
	"time"

	"inbox-agent/internal/sync/domain"

	"github.com/rs/zerolog"
)

// LeaseRenewer keeps the mailbox watch alive.
type LeaseRenewer interface {
	NeedsRenewal(ctx context.Context, now time.Time) (bool, error)
	Renew(ctx context.Context) (*domain.WatchLease, error)
}

// FailedRetrier re-drives failed pipeline messages.
type FailedRetrier interface {
	RetryFailed(ctx context.Context) (int, error)
}

// MaintenanceScheduler renews the watch lease before it expires and periodically
// re-drives failed messages. Either job may be nil.
type MaintenanceScheduler struct {
	leases        LeaseRenewer
	retrier       FailedRetrier
	interval      time.Duration
	retryInterval time.Duration
	now           func() time.Time
	logger        zerolog.Logger

	lastRetry time.Time
	stopOnce  sync.Once
	stopChan  chan struct{}
	done      chan struct{}
}

// NewMaintenanceScheduler creates a new scheduler that checks every interval.
func NewMaintenanceScheduler(
	leases LeaseRenewer,
	retrier FailedRetrier,
	interval, retryInterval time.Duration,
	logger zerolog.Logger,
) *MaintenanceScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &MaintenanceScheduler{
		leases:        leases,
		retrier:       retrier,
		interval:      interval,
		retryInterval: retryInterval,
		now:           time.Now,
		logger:        logger,
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *MaintenanceScheduler) Start() {
	s.logger.Info().Dur("interval", s.interval).Dur("retry_interval", s.retryInterval).Msg("maintenance scheduler started")

	go func() {
		defer close(s.done)

		// Run immediately on start
		s.tick(context.Background())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.tick(context.Background())
			case <-s.stopChan:
				s.logger.Info().Msg("maintenance scheduler stopped")
				return
			}
		}
	}()
}

// Stop ends the loop and waits for a running tick to finish
func (s *MaintenanceScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
}

func (s *MaintenanceScheduler) tick(ctx context.Context) {
	now := s.now()
	s.renewLease(ctx, now)
	s.retryFailed(ctx, now)
}

func (s *MaintenanceScheduler) renewLease(ctx context.Context, now time.Time) {
	if s.leases == nil {
		return
	}

	needs, err := s.leases.NeedsRenewal(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("unable to check watch lease")
		return
	}
	if !needs {
		return
	}

	lease, err := s.leases.Renew(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("watch renewal failed, retrying next tick")
		return
	}
	s.logger.Info().Time("expiration", lease.Expiration).Msg("watch lease renewed")
}

func (s *MaintenanceScheduler) retryFailed(ctx context.Context, now time.Time) {
	if s.retrier == nil || s.retryInterval <= 0 {
		return
	}
	if !s.lastRetry.IsZero() && now.Sub(s.lastRetry) < s.retryInterval {
		return
	}
	s.lastRetry = now

	if _, err := s.retrier.RetryFailed(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed message re-drive failed")
	}
}
