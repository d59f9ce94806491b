package repository

import (
	"context"

	"inbox-agent/internal/sync/domain"
)

// CursorRepository persists the single SyncCursor. Every mutation is a
// compare-and-swap against the stored generation, so the watermark never moves backward.
type CursorRepository interface {
	// Load returns domain.ErrCursorNotFound when nothing has been stored yet.
	Load(ctx context.Context) (*domain.SyncCursor, error)
	// Initialize creates the cursor at historyID if it is absent.
	// Returns (cursor, created bool, error); an existing cursor is returned untouched.
	Initialize(ctx context.Context, historyID uint64) (*domain.SyncCursor, bool, error)
	// Advance raises the watermark to target. A stored value >= target wins and
	// the advance is discarded (advanced == false).
	Advance(ctx context.Context, target uint64) (*domain.SyncCursor, bool, error)
	// RecordWatch stores the lease expiration. The watermark is only set when the cursor is absent.
	RecordWatch(ctx context.Context, lease domain.WatchLease) (*domain.SyncCursor, error)
}
