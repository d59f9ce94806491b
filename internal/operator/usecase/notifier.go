package usecase

import (
	"context"
	"fmt"
	"strings"

	agentdomain "inbox-agent/internal/agent/domain"
	"inbox-agent/internal/operator/domain"
	"inbox-agent/internal/operator/repository"
	"inbox-agent/pkg/fcm"

	"github.com/rs/zerolog"
)

const maxTitleSubject = 100

// PushSender delivers one notification to many devices and reports the tokens that failed.
type PushSender interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) ([]string, error)
}

// OperatorUsecase manages operator devices and tells them about stored drafts.
type OperatorUsecase interface {
	RegisterDevice(ctx context.Context, token, deviceInfo string) error
	UnregisterDevice(ctx context.Context, token string) error
	ListDevices(ctx context.Context) ([]domain.DeviceToken, error)
	NotifyDrafted(ctx context.Context, persisted agentdomain.Persisted) error
}

type operatorUsecase struct {
	tokens repository.DeviceTokenRepository
	sender PushSender
	logger zerolog.Logger
}

// NewOperatorUsecase returns the usecase. A nil sender keeps device management but sends nothing.
func NewOperatorUsecase(tokens repository.DeviceTokenRepository, sender PushSender, logger zerolog.Logger) OperatorUsecase {
	return &operatorUsecase{tokens: tokens, sender: sender, logger: logger}
}

func (u *operatorUsecase) RegisterDevice(ctx context.Context, token, deviceInfo string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrEmptyToken
	}
	return u.tokens.SaveToken(ctx, token, deviceInfo)
}

func (u *operatorUsecase) UnregisterDevice(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrEmptyToken
	}
	return u.tokens.DeleteToken(ctx, token)
}

func (u *operatorUsecase) ListDevices(ctx context.Context) ([]domain.DeviceToken, error) {
	return u.tokens.ListTokens(ctx)
}

// NotifyDrafted pushes a "draft ready" notification and forgets tokens FCM rejected.
func (u *operatorUsecase) NotifyDrafted(ctx context.Context, persisted agentdomain.Persisted) error {
	if u.sender == nil {
		return nil
	}

	devices, err := u.tokens.ListTokens(ctx)
	if err != nil {
		return fmt.Errorf("failed to list device tokens: %w", err)
	}
	if len(devices) == 0 {
		return nil
	}
	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		tokens = append(tokens, d.Token)
	}

	failed, err := u.sender.SendToDevices(ctx, tokens, draftNotification(persisted))
	if err != nil {
		return fmt.Errorf("failed to send draft notification: %w", err)
	}

	for _, token := range failed {
		if err := u.tokens.DeleteToken(ctx, token); err != nil {
			u.logger.Warn().Err(err).Str("token", fcm.Redact(token)).Msg("failed to remove rejected token")
		}
	}
	if len(failed) > 0 {
		u.logger.Info().Int("removed", len(failed)).Msg("rejected device tokens removed")
	}
	return nil
}

func draftNotification(p agentdomain.Persisted) fcm.NotificationData {
	subject := p.Subject
	if len([]rune(subject)) > maxTitleSubject {
		subject = string([]rune(subject)[:maxTitleSubject-3]) + "..."
	}
	if subject == "" {
		subject = "(no subject)"
	}

	sender := p.Sender
	if sender == "" {
		sender = "unknown sender"
	}

	return fcm.NotificationData{
		Title: "Draft ready: " + subject,
		Body:  fmt.Sprintf("Reply to %s drafted (confidence %.1f)", sender, p.Confidence),
		Data: map[string]string{
			"type":       "draft_ready",
			"message_id": p.MessageID(),
			"thread_id":  p.ThreadID,
			"draft_id":   p.DraftID,
			"confidence": fmt.Sprintf("%.2f", p.Confidence),
		},
		ClickAction: draftClickAction(p.DraftID),
	}
}

// draftClickAction returns the URL path for opening the draft
func draftClickAction(draftID string) string {
	if draftID == "" {
		return "/drafts"
	}
	return "/drafts/" + draftID
}
