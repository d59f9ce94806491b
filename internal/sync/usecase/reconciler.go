package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"inbox-agent/internal/sync/domain"
	"inbox-agent/internal/sync/repository"
	"inbox-agent/pkg/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Reconciler turns one "mailbox is now at history H" notification into pipeline runs
// for every message added since the stored cursor, then advances the cursor.
//
// Round states: Start -> Enumerating -> Processing -> Advancing -> Done,
// or Enumerating -> Failed, which leaves the cursor untouched.
type Reconciler struct {
	cursors    repository.CursorRepository
	enumerator ChangeEnumerator
	processor  MessageProcessor
	workers    int
	logger     zerolog.Logger
}

func NewReconciler(
	cursors repository.CursorRepository,
	enumerator ChangeEnumerator,
	processor MessageProcessor,
	workers int,
	logger zerolog.Logger,
) *Reconciler {
	if workers <= 0 {
		workers = 1
	}
	return &Reconciler{
		cursors:    cursors,
		enumerator: enumerator,
		processor:  processor,
		workers:    workers,
		logger:     logger,
	}
}

// Reconcile runs one round. Per-message failures are counted, never returned;
// an error means the round stopped before the cursor could be advanced.
func (r *Reconciler) Reconcile(ctx context.Context, n domain.Notification) (*domain.RoundResult, error) {
	result, err := r.reconcile(ctx, n)
	metrics.RoundsTotal.WithLabelValues(string(result.Outcome)).Inc()
	return result, err
}

func (r *Reconciler) reconcile(ctx context.Context, n domain.Notification) (*domain.RoundResult, error) {
	result := &domain.RoundResult{NotifiedHistoryID: n.HistoryID}
	log := r.logger.With().Uint64("notified_history_id", n.HistoryID).Logger()

	// Start
	cur, err := r.cursors.Load(ctx)
	if errors.Is(err, domain.ErrCursorNotFound) {
		initialized, created, initErr := r.cursors.Initialize(ctx, n.HistoryID)
		if initErr != nil {
			result.Outcome = domain.OutcomeFailed
			return result, fmt.Errorf("failed to bootstrap cursor: %w", initErr)
		}
		if created {
			result.Outcome = domain.OutcomeBootstrapped
			result.StartCursor = initialized.LastHistoryID
			result.HighWaterMark = initialized.LastHistoryID
			result.FinalCursor = initialized.LastHistoryID
			log.Info().Msg("no cursor stored, bootstrapped at notified history id")
			return result, nil
		}
		cur = initialized
	} else if err != nil {
		result.Outcome = domain.OutcomeFailed
		return result, fmt.Errorf("failed to load cursor: %w", err)
	}

	result.StartCursor = cur.LastHistoryID
	log = log.With().Uint64("start_cursor", cur.LastHistoryID).Logger()

	// Enumerating
	ids, highWaterMark, err := r.enumerator.EnumerateSince(ctx, cur.LastHistoryID)
	if err != nil {
		if errors.Is(err, domain.ErrCursorExpired) {
			return r.resetExpired(ctx, result, err, log)
		}
		result.Outcome = domain.OutcomeFailed
		log.Error().Err(err).Msg("enumeration failed, cursor left untouched")
		return result, fmt.Errorf("failed to enumerate changes: %w", err)
	}
	result.HighWaterMark = highWaterMark

	// Processing
	r.process(ctx, ids, result, log)

	// Advancing
	target := highWaterMark
	if n.HistoryID > target {
		target = n.HistoryID
	}
	advanced, moved, err := r.cursors.Advance(ctx, target)
	if err != nil {
		result.Outcome = domain.OutcomeFailed
		log.Error().Err(err).Uint64("target", target).Msg("cursor advance failed")
		return result, err
	}

	result.Outcome = domain.OutcomeCompleted
	result.FinalCursor = advanced.LastHistoryID
	log.Info().
		Uint64("high_water_mark", highWaterMark).
		Uint64("final_cursor", result.FinalCursor).
		Bool("advanced", moved).
		Int("processed", result.Processed).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Msg("round completed")
	return result, nil
}

// resetExpired moves the cursor to the notified id. Messages between the old cursor and the
// notified id that were never enumerated are lost; the gap is logged at error level.
func (r *Reconciler) resetExpired(ctx context.Context, result *domain.RoundResult, cause error, log zerolog.Logger) (*domain.RoundResult, error) {
	advanced, _, err := r.cursors.Advance(ctx, result.NotifiedHistoryID)
	if err != nil {
		result.Outcome = domain.OutcomeFailed
		return result, fmt.Errorf("failed to reset expired cursor: %w", err)
	}

	result.Outcome = domain.OutcomeCursorReset
	result.HighWaterMark = result.NotifiedHistoryID
	result.FinalCursor = advanced.LastHistoryID
	log.Error().
		Err(cause).
		Uint64("final_cursor", result.FinalCursor).
		Msg("history cursor expired, reset to notified history id; changes in between were not enumerated")
	return result, nil
}

func (r *Reconciler) process(ctx context.Context, ids []string, result *domain.RoundResult, log zerolog.Logger) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			skipped, err := r.processor.Process(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			result.Processed++
			switch {
			case err != nil:
				result.Failed++
				log.Error().Err(err).Str("message_id", id).Msg("message pipeline failed")
			case skipped:
				result.Skipped++
			default:
				result.Succeeded++
			}
			// never abort siblings
			return nil
		})
	}
	_ = g.Wait()
}
