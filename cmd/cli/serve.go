package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	api "inbox-agent/cmd/api"
	authUsecase "inbox-agent/internal/auth/usecase"
	syncDelivery "inbox-agent/internal/sync/delivery"
	syncScheduler "inbox-agent/internal/sync/scheduler"
	syncUsecase "inbox-agent/internal/sync/usecase"
	"inbox-agent/pkg/ai"
	"inbox-agent/pkg/config"
	"inbox-agent/pkg/logger"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server, scheduler and optional Pub/Sub pull subscriber",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg
	log := a.logger

	mailbox, err := a.mailbox(ctx)
	if err != nil {
		return err
	}
	if _, err := mailbox.EnsureLabel(ctx, cfg.DraftLabel); err != nil {
		log.Warn().Err(err).Str("label", cfg.DraftLabel).Msg("unable to ensure draft label, will retry on first draft")
	}

	operator, err := a.operator(ctx)
	if err != nil {
		return err
	}
	settings := ai.NewRuntimeSettings(cfg.OllamaBaseURL, cfg.OllamaModel)
	pipeline, err := a.pipeline(mailbox, settings, operator)
	if err != nil {
		return err
	}

	enumerator := syncUsecase.NewEnumerator(mailbox, logger.Component(log, "enumerator"))
	reconciler := syncUsecase.NewReconciler(a.cursors, enumerator, pipeline, cfg.PipelineWorkers, logger.Component(log, "reconciler"))
	dispatcher := syncUsecase.NewDispatcher(reconciler, cfg.RoundTimeout, logger.Component(log, "dispatcher"))
	leases := a.leases(mailbox)

	scheduler := syncScheduler.NewMaintenanceScheduler(leases, pipeline, cfg.SchedulerInterval, cfg.RetryInterval, logger.Component(log, "scheduler"))
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.PubSubPullEnabled {
		if cfg.GoogleProjectID == "" {
			log.Warn().Msg("PUBSUB_PULL_ENABLED set without GOOGLE_PROJECT_ID, pull subscriber disabled")
		} else {
			sub, err := syncDelivery.NewSubscriber(ctx, cfg.GoogleProjectID, cfg.GoogleCredentials, cfg.ShortTopicName(), cfg.SubscriptionName(), reconciler, cfg.MailboxAddress, logger.Component(log, "subscriber"))
			if err != nil {
				return err
			}
			defer sub.Close()
			go func() {
				if err := sub.Start(ctx); err != nil {
					log.Error().Err(err).Msg("pull subscriber stopped")
				}
			}()
		}
	}

	verifier, err := authUsecase.NewPushVerifier(cfg)
	if err != nil {
		return err
	}
	if cfg.PushAuthMode == config.PushAuthDisabled {
		log.Warn().Msg("push authentication disabled, the webhook accepts any caller")
	}

	handler := api.NewHandler(cfg, api.Dependencies{
		Auth:         authUsecase.NewAuthUsecase(cfg),
		PushVerifier: verifier,
		Dispatcher:   dispatcher,
		Leases:       leases,
		Pipeline:     pipeline,
		Knowledge:    a.knowledge,
		Operator:     operator,
		Settings:     settings,
	}, logger.Component(log, "http"))
	srv := handler.Server(":" + cfg.Port)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown incomplete")
	}
	// rounds already running are allowed to finish
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("reconciliation rounds still running at shutdown")
	}
	return nil
}
