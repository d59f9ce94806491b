package delivery

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"inbox-agent/internal/sync/domain"
	"inbox-agent/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const maxPushBody = 1 << 20

// NotificationDispatcher starts a reconciliation round without waiting for it.
type NotificationDispatcher interface {
	Dispatch(n domain.Notification)
}

// LeaseManager is the watch lease surface used by the admin endpoints.
type LeaseManager interface {
	Renew(ctx context.Context) (*domain.WatchLease, error)
	Stop(ctx context.Context) error
	Status(ctx context.Context) (*domain.SyncCursor, error)
	NeedsRenewal(ctx context.Context, now time.Time) (bool, error)
}

type SyncHandler struct {
	dispatcher NotificationDispatcher
	leases     LeaseManager
	mailbox    string
	logger     zerolog.Logger
}

// NewSyncHandler creates the handler. Notifications for any address other than
// mailbox are ignored; an empty mailbox accepts every address.
func NewSyncHandler(dispatcher NotificationDispatcher, leases LeaseManager, mailbox string, logger zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		dispatcher: dispatcher,
		leases:     leases,
		mailbox:    mailbox,
		logger:     logger,
	}
}

// GmailWebhook acknowledges every handled push with 200 so the sender never redelivers;
// the reconciliation round runs detached.
func (h *SyncHandler) GmailWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPushBody))
	if err != nil {
		h.ignore(c, "unreadable body", err)
		return
	}

	n, err := DecodeNotification(body)
	if err != nil {
		h.ignore(c, "malformed notification", err)
		return
	}
	if h.mailbox != "" && !strings.EqualFold(n.EmailAddress, h.mailbox) {
		h.ignore(c, "notification for another mailbox", errors.New(n.EmailAddress))
		return
	}

	h.dispatcher.Dispatch(*n)
	metrics.NotificationsTotal.WithLabelValues("accepted").Inc()
	h.logger.Info().Uint64("history_id", n.HistoryID).Msg("notification accepted")
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

func (h *SyncHandler) ignore(c *gin.Context, reason string, err error) {
	metrics.NotificationsTotal.WithLabelValues("ignored").Inc()
	h.logger.Warn().Err(err).Str("reason", reason).Msg("notification ignored")
	c.JSON(http.StatusOK, gin.H{"status": "ignored"})
}

// RenewWatch registers (or re-registers) the mailbox watch.
func (h *SyncHandler) RenewWatch(c *gin.Context) {
	lease, err := h.leases.Renew(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"history_id":    lease.HistoryID,
		"expiration":    lease.Expiration,
		"expiration_ms": lease.Expiration.UnixMilli(),
	})
}

func (h *SyncHandler) StopWatch(c *gin.Context) {
	if err := h.leases.Stop(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

// GetCursor returns the stored cursor and watch lease.
func (h *SyncHandler) GetCursor(c *gin.Context) {
	ctx := c.Request.Context()
	cur, err := h.leases.Status(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCursorNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "cursor not initialized"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	needsRenewal, err := h.leases.NeedsRenewal(ctx, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"last_history_id":     cur.LastHistoryID,
		"watch_expiration_ms": cur.WatchExpirationMs,
		"needs_renewal":       needsRenewal,
	}
	if cur.HasWatch() {
		resp["watch_expiration_iso"] = cur.WatchExpiration.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}
