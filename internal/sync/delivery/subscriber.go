package delivery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inbox-agent/internal/sync/domain"
	"inbox-agent/pkg/metrics"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// RoundRunner runs one reconciliation round to completion.
type RoundRunner interface {
	Reconcile(ctx context.Context, n domain.Notification) (*domain.RoundResult, error)
}

// Subscriber pulls mailbox notifications from a Pub/Sub subscription and runs
// each round before acknowledging, so a failed round is redelivered.
type Subscriber struct {
	client  *pubsub.Client
	runner  RoundRunner
	topic   string
	subName string
	mailbox string
	logger  zerolog.Logger
}

func NewSubscriber(
	ctx context.Context,
	projectID, credentialsFile, topic, subscription string,
	runner RoundRunner,
	mailbox string,
	logger zerolog.Logger,
) (*Subscriber, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &Subscriber{
		client:  client,
		runner:  runner,
		topic:   topic,
		subName: subscription,
		mailbox: mailbox,
		logger:  logger,
	}, nil
}

// Start ensures the subscription exists and receives until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	sub, err := s.ensureSubscription(ctx)
	if err != nil {
		return err
	}
	// one round at a time; rounds already converge through the cursor
	sub.ReceiveSettings.NumGoroutines = 1
	sub.ReceiveSettings.MaxOutstandingMessages = 1

	s.logger.Info().Str("subscription", s.subName).Msg("listening for notifications")
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		// a round is never cut short by shutdown
		if s.Handle(context.WithoutCancel(ctx), msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
	if err != nil {
		return fmt.Errorf("error receiving messages: %w", err)
	}
	return nil
}

func (s *Subscriber) ensureSubscription(ctx context.Context) (*pubsub.Subscription, error) {
	sub := s.client.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("error checking subscription existence: %w", err)
	}
	if exists {
		return sub, nil
	}

	topic := s.client.Topic(s.topic)
	topicExists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("error checking topic existence: %w", err)
	}
	if !topicExists {
		return nil, fmt.Errorf("topic %s does not exist, cannot create subscription", s.topic)
	}

	sub, err = s.client.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: 60 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	s.logger.Info().Str("subscription", s.subName).Msg("created subscription")
	return sub, nil
}

// Handle runs the round for one message and reports whether to ack it.
// Undecodable or foreign notifications are acked so they are not redelivered.
func (s *Subscriber) Handle(ctx context.Context, data []byte) bool {
	n, err := DecodeNotification(data)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("ignored").Inc()
		s.logger.Warn().Err(err).Msg("pulled notification ignored")
		return true
	}
	if s.mailbox != "" && !strings.EqualFold(n.EmailAddress, s.mailbox) {
		metrics.NotificationsTotal.WithLabelValues("ignored").Inc()
		s.logger.Warn().Str("email", n.EmailAddress).Msg("pulled notification for another mailbox ignored")
		return true
	}

	metrics.NotificationsTotal.WithLabelValues("accepted").Inc()
	result, err := s.runner.Reconcile(ctx, *n)
	if err != nil {
		s.logger.Error().Err(err).Uint64("history_id", n.HistoryID).Msg("round failed, notification will be redelivered")
		return false
	}
	s.logger.Debug().Str("outcome", string(result.Outcome)).Uint64("history_id", n.HistoryID).Msg("pulled notification handled")
	return true
}

func (s *Subscriber) Close() error {
	return s.client.Close()
}
