package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	agentdomain "inbox-agent/internal/agent/domain"
	"inbox-agent/internal/operator/domain"
	"inbox-agent/internal/operator/repository"
	"inbox-agent/pkg/fcm"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	tokens []string
	sent   []fcm.NotificationData
	failed []string
	err    error
}

func (f *fakeSender) SendToDevices(_ context.Context, tokens []string, n fcm.NotificationData) ([]string, error) {
	f.tokens = tokens
	f.sent = append(f.sent, n)
	return f.failed, f.err
}

func persisted() agentdomain.Persisted {
	return agentdomain.Persisted{
		Drafted: agentdomain.Drafted{
			Retrieved: agentdomain.Retrieved{Parsed: agentdomain.Parsed{
				Pending:  agentdomain.Pending{ID: "m1"},
				Subject:  "Order status",
				Sender:   "ann@example.com",
				ThreadID: "t1",
			}},
			DraftText:  "Hi",
			Confidence: 0.7,
		},
		DraftID: "r-1",
	}
}

func TestNotifyDrafted_SendsAndPrunesRejectedTokens(t *testing.T) {
	ctx := context.Background()
	tokens := repository.NewMemoryDeviceTokenRepository("tok-a", "tok-b")
	sender := &fakeSender{failed: []string{"tok-b"}}
	uc := NewOperatorUsecase(tokens, sender, zerolog.Nop())

	require.NoError(t, uc.NotifyDrafted(ctx, persisted()))
	assert.Equal(t, []string{"tok-a", "tok-b"}, sender.tokens)
	require.Len(t, sender.sent, 1)
	n := sender.sent[0]
	assert.Equal(t, "Draft ready: Order status", n.Title)
	assert.Equal(t, "m1", n.Data["message_id"])
	assert.Equal(t, "r-1", n.Data["draft_id"])
	assert.Equal(t, "0.70", n.Data["confidence"])
	assert.Equal(t, "/drafts/r-1", n.ClickAction)

	remaining, err := uc.ListDevices(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "tok-a", remaining[0].Token)
}

func TestNotifyDrafted_NoDevicesOrSender(t *testing.T) {
	sender := &fakeSender{}
	uc := NewOperatorUsecase(repository.NewMemoryDeviceTokenRepository(), sender, zerolog.Nop())
	require.NoError(t, uc.NotifyDrafted(context.Background(), persisted()))
	assert.Empty(t, sender.sent)

	uc = NewOperatorUsecase(repository.NewMemoryDeviceTokenRepository("tok"), nil, zerolog.Nop())
	assert.NoError(t, uc.NotifyDrafted(context.Background(), persisted()))
}

func TestNotifyDrafted_SendError(t *testing.T) {
	boom := errors.New("unavailable")
	uc := NewOperatorUsecase(repository.NewMemoryDeviceTokenRepository("tok"), &fakeSender{err: boom}, zerolog.Nop())
	assert.ErrorIs(t, uc.NotifyDrafted(context.Background(), persisted()), boom)
}

func TestDraftNotification_TruncatesSubject(t *testing.T) {
	p := persisted()
	p.Subject = strings.Repeat("x", 150)
	n := draftNotification(p)
	assert.Equal(t, "Draft ready: "+strings.Repeat("x", 97)+"...", n.Title)
}

func TestRegisterDevice(t *testing.T) {
	ctx := context.Background()
	uc := NewOperatorUsecase(repository.NewMemoryDeviceTokenRepository(), nil, zerolog.Nop())

	assert.ErrorIs(t, uc.RegisterDevice(ctx, "  ", "x"), domain.ErrEmptyToken)
	require.NoError(t, uc.RegisterDevice(ctx, "tok", "Chrome"))
	require.NoError(t, uc.RegisterDevice(ctx, "tok", "Firefox"))

	devices, err := uc.ListDevices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "Firefox", devices[0].DeviceInfo)

	require.NoError(t, uc.UnregisterDevice(ctx, "tok"))
	devices, _ = uc.ListDevices(ctx)
	assert.Empty(t, devices)
}
