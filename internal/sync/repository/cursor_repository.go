package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"inbox-agent/internal/sync/domain"
	"inbox-agent/pkg/blobstore"
	"inbox-agent/pkg/metrics"

	"github.com/cenkalti/backoff/v4"
)

// cursorDocument is the persisted JSON layout of the cursor blob.
type cursorDocument struct {
	LastHistoryID      uint64 `json:"last_history_id"`
	WatchExpirationMs  int64  `json:"watch_expiration_ms"`
	WatchExpirationISO string `json:"watch_expiration_iso"`
}

// blobCursorRepository implements CursorRepository on a blobstore.Store
type blobCursorRepository struct {
	store blobstore.Store
	key   string

	initialInterval time.Duration
	maxElapsed      time.Duration
}

// NewBlobCursorRepository creates a cursor repository stored under key
func NewBlobCursorRepository(store blobstore.Store, key string) CursorRepository {
	return &blobCursorRepository{
		store:           store,
		key:             key,
		initialInterval: 25 * time.Millisecond,
		maxElapsed:      15 * time.Second,
	}
}

func (r *blobCursorRepository) Load(ctx context.Context) (*domain.SyncCursor, error) {
	cur, _, err := r.read(ctx)
	return cur, err
}

func (r *blobCursorRepository) Initialize(ctx context.Context, historyID uint64) (*domain.SyncCursor, bool, error) {
	cur, created, err := r.update(ctx, func(cur *domain.SyncCursor, exists bool) (*domain.SyncCursor, bool) {
		if exists {
			return cur, false
		}
		return &domain.SyncCursor{LastHistoryID: historyID}, true
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to initialize cursor at %d: %w", historyID, err)
	}
	return cur, created, nil
}

func (r *blobCursorRepository) Advance(ctx context.Context, target uint64) (*domain.SyncCursor, bool, error) {
	cur, advanced, err := r.update(ctx, func(cur *domain.SyncCursor, exists bool) (*domain.SyncCursor, bool) {
		if exists && cur.LastHistoryID >= target {
			return cur, false
		}
		next := *cur
		next.LastHistoryID = target
		return &next, true
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to advance cursor to %d: %w", target, err)
	}
	return cur, advanced, nil
}

func (r *blobCursorRepository) RecordWatch(ctx context.Context, lease domain.WatchLease) (*domain.SyncCursor, error) {
	cur, _, err := r.update(ctx, func(cur *domain.SyncCursor, exists bool) (*domain.SyncCursor, bool) {
		next := *cur
		if !exists {
			next.LastHistoryID = lease.HistoryID
		}
		if !lease.Expiration.IsZero() {
			next.WatchExpiration = lease.Expiration.UTC()
			next.WatchExpirationMs = lease.Expiration.UnixMilli()
		}
		return &next, true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record watch lease: %w", err)
	}
	if cur.HasWatch() {
		metrics.WatchExpiration.Set(float64(cur.WatchExpiration.Unix()))
	}
	return cur, nil
}

// update runs a read-modify-write cycle, retrying on generation conflicts.
// mutate receives a zero cursor when none is stored and reports whether anything changed.
func (r *blobCursorRepository) update(
	ctx context.Context,
	mutate func(cur *domain.SyncCursor, exists bool) (*domain.SyncCursor, bool),
) (*domain.SyncCursor, bool, error) {
	var (
		result  *domain.SyncCursor
		changed bool
	)

	op := func() error {
		cur, gen, err := r.read(ctx)
		exists := true
		if errors.Is(err, domain.ErrCursorNotFound) {
			cur, gen, exists = &domain.SyncCursor{}, 0, false
		} else if err != nil {
			return backoff.Permanent(err)
		}

		next, ok := mutate(cur, exists)
		if !ok {
			result, changed = next, false
			return nil
		}

		if err := r.write(ctx, next, gen); err != nil {
			if errors.Is(err, blobstore.ErrPreconditionFailed) {
				metrics.CursorCASConflictsTotal.Inc()
				return err
			}
			return backoff.Permanent(err)
		}
		result, changed = next, true
		return nil
	}

	if err := backoff.Retry(op, r.newBackOff(ctx)); err != nil {
		return nil, false, err
	}
	if changed {
		metrics.CursorHistoryID.Set(float64(result.LastHistoryID))
	}
	return result, changed, nil
}

func (r *blobCursorRepository) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.initialInterval
	exp.MaxInterval = time.Second
	exp.MaxElapsedTime = r.maxElapsed
	exp.Reset()
	return backoff.WithContext(exp, ctx)
}

func (r *blobCursorRepository) read(ctx context.Context) (*domain.SyncCursor, int64, error) {
	obj, err := r.store.Read(ctx, r.key)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, 0, domain.ErrCursorNotFound
		}
		return nil, 0, fmt.Errorf("failed to read cursor blob: %w", err)
	}

	var doc cursorDocument
	if err := json.Unmarshal(obj.Data, &doc); err != nil {
		return nil, 0, fmt.Errorf("failed to decode cursor blob: %w", err)
	}
	return &domain.SyncCursor{
		LastHistoryID:     doc.LastHistoryID,
		WatchExpirationMs: doc.WatchExpirationMs,
		WatchExpiration:   domain.ExpirationFromMillis(doc.WatchExpirationMs),
	}, obj.Generation, nil
}

func (r *blobCursorRepository) write(ctx context.Context, cur *domain.SyncCursor, ifGeneration int64) error {
	doc := cursorDocument{
		LastHistoryID:     cur.LastHistoryID,
		WatchExpirationMs: cur.WatchExpirationMs,
	}
	if cur.HasWatch() {
		doc.WatchExpirationISO = domain.ExpirationFromMillis(cur.WatchExpirationMs).Format(time.RFC3339)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode cursor: %w", err)
	}
	if _, err := r.store.Write(ctx, r.key, data, ifGeneration); err != nil {
		return err
	}
	return nil
}
