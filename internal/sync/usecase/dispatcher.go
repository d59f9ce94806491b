package usecase

import (
	"context"
	"sync"
	"time"

	"inbox-agent/internal/sync/domain"

	"github.com/rs/zerolog"
)

// Dispatcher runs reconciliation rounds detached from the request that triggered them.
type Dispatcher struct {
	runner  RoundRunner
	timeout time.Duration
	logger  zerolog.Logger

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher; timeout bounds each round (0 = no bound).
func NewDispatcher(runner RoundRunner, timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		runner:  runner,
		timeout: timeout,
		logger:  logger,
	}
}

// Dispatch starts a round in the background and returns immediately.
func (d *Dispatcher) Dispatch(n domain.Notification) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx := context.Background()
		if d.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.timeout)
			defer cancel()
		}

		if _, err := d.runner.Reconcile(ctx, n); err != nil {
			d.logger.Error().Err(err).Uint64("history_id", n.HistoryID).Msg("reconciliation round failed")
		}
	}()
}

// Wait blocks until every dispatched round has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown waits for in-flight rounds until ctx is done. Rounds are never cancelled mid-stage.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
