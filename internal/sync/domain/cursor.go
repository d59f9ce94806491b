package domain

import "time"

// SyncCursor is the single durable watermark for the mailbox plus the
// metadata of the currently registered watch lease.
type SyncCursor struct {
	LastHistoryID     uint64    `json:"last_history_id"`
	WatchExpiration   time.Time `json:"-"`
	WatchExpirationMs int64     `json:"watch_expiration_ms"`
}

// HasWatch reports whether a watch lease has ever been recorded.
func (c *SyncCursor) HasWatch() bool {
	return c != nil && c.WatchExpirationMs > 0
}

// WatchLease is the result of registering the mailbox watch.
type WatchLease struct {
	HistoryID  uint64
	Expiration time.Time
}

// ExpirationFromMillis converts the provider's epoch-ms expiration.
func ExpirationFromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
