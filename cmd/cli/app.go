package cli

import (
	"context"
	"fmt"

	agentdomain "inbox-agent/internal/agent/domain"
	agentRepo "inbox-agent/internal/agent/repository"
	agentUsecase "inbox-agent/internal/agent/usecase"
	knowledgeRepo "inbox-agent/internal/knowledge/repository"
	knowledgeUsecase "inbox-agent/internal/knowledge/usecase"
	operatordomain "inbox-agent/internal/operator/domain"
	operatorRepo "inbox-agent/internal/operator/repository"
	operatorUsecase "inbox-agent/internal/operator/usecase"
	syncRepo "inbox-agent/internal/sync/repository"
	syncUsecase "inbox-agent/internal/sync/usecase"
	"inbox-agent/pkg/ai"
	"inbox-agent/pkg/blobstore"
	"inbox-agent/pkg/chroma"
	"inbox-agent/pkg/config"
	"inbox-agent/pkg/database"
	"inbox-agent/pkg/fcm"
	"inbox-agent/pkg/gmail"
	"inbox-agent/pkg/logger"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// app holds the long-lived dependencies shared by every command.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	db        *gorm.DB
	cursors   syncRepo.CursorRepository
	knowledge knowledgeUsecase.KnowledgeUsecase
	closers   []func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger.New("inbox-agent", cfg.LogLevel)}

	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.AutoMigrate(&blobstore.BlobRecord{}, &agentdomain.MessageCheckpoint{}, &operatordomain.DeviceToken{}); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		a.db = db
	}

	store, err := a.blobStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.cursors = syncRepo.NewBlobCursorRepository(store, cfg.CursorKey)

	index, err := a.knowledgeIndex(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.knowledge = knowledgeUsecase.NewKnowledgeUsecase(index, logger.Component(a.logger, "knowledge"))

	return a, nil
}

func (a *app) blobStore(ctx context.Context) (blobstore.Store, error) {
	switch a.cfg.CursorBackend {
	case config.CursorBackendGCS:
		store, err := blobstore.NewGCSStore(ctx, a.cfg.CursorBucket, a.cfg.GoogleCredentials)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.CursorBackendPostgres:
		return blobstore.NewPostgresStore(a.db), nil
	default:
		a.logger.Warn().Msg("cursor kept in memory, it will not survive a restart")
		return blobstore.NewMemoryStore(), nil
	}
}

func (a *app) knowledgeIndex(ctx context.Context) (knowledgeRepo.KnowledgeIndex, error) {
	if a.cfg.ChromaURL == "" && a.cfg.ChromaAPIKey == "" {
		a.logger.Info().Msg("chroma not configured, using in-memory knowledge index")
		return knowledgeRepo.NewMemoryIndex(), nil
	}
	index, err := chroma.NewKnowledgeIndex(ctx, a.cfg, logger.Component(a.logger, "chroma"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, index.Close)
	return index, nil
}

func (a *app) mailbox(ctx context.Context) (*gmail.Service, error) {
	return gmail.NewService(ctx, a.cfg.GoogleClientID, a.cfg.GoogleClientSecret, a.cfg.GoogleRefreshToken, logger.Component(a.logger, "gmail"))
}

func (a *app) leases(mailbox *gmail.Service) *syncUsecase.WatchLeaseManager {
	return syncUsecase.NewWatchLeaseManager(
		mailbox,
		a.cursors,
		a.cfg.FullTopicName(),
		a.cfg.WatchRenewBefore,
		logger.Component(a.logger, "watch"),
	)
}

func (a *app) checkpoints() agentRepo.CheckpointRepository {
	if a.db != nil {
		return agentRepo.NewCheckpointRepository(a.db)
	}
	return agentRepo.NewMemoryCheckpointRepository()
}

func (a *app) deviceTokens(ctx context.Context) (operatorRepo.DeviceTokenRepository, error) {
	if a.db == nil {
		return operatorRepo.NewMemoryDeviceTokenRepository(a.cfg.FCMDeviceTokens...), nil
	}
	tokens := operatorRepo.NewDeviceTokenRepository(a.db)
	for _, token := range a.cfg.FCMDeviceTokens {
		if err := tokens.SaveToken(ctx, token, "FCM_DEVICE_TOKENS"); err != nil {
			return nil, err
		}
	}
	return tokens, nil
}

func (a *app) operator(ctx context.Context) (operatorUsecase.OperatorUsecase, error) {
	tokens, err := a.deviceTokens(ctx)
	if err != nil {
		return nil, err
	}

	// FCM is optional, the pipeline works without it
	var sender operatorUsecase.PushSender
	if a.cfg.FirebaseCredentials != "" {
		client, err := fcm.NewClient(ctx, a.cfg.FirebaseCredentials, logger.Component(a.logger, "fcm"))
		if err != nil {
			a.logger.Warn().Err(err).Msg("failed to initialize FCM client, push notifications disabled")
		} else {
			sender = client
		}
	}
	return operatorUsecase.NewOperatorUsecase(tokens, sender, logger.Component(a.logger, "operator")), nil
}

// pipeline wires the drafting pipeline against mailbox.
func (a *app) pipeline(mailbox agentUsecase.MailboxProvider, settings *ai.RuntimeSettings, notifier agentUsecase.DraftNotifier) (*agentUsecase.Pipeline, error) {
	generator, err := ai.NewReplyGenerator(ai.Config{
		Provider:     ai.ProviderType(a.cfg.AIProvider),
		GeminiAPIKey: a.cfg.GeminiAPIKey,
		GeminiModel:  a.cfg.GeminiModel,
	}, settings, logger.Component(a.logger, "ai"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reply generator: %w", err)
	}

	p := agentUsecase.NewPipeline(
		mailbox,
		a.knowledge,
		generator,
		a.checkpoints(),
		agentUsecase.PipelineConfig{
			DraftLabel:        a.cfg.DraftLabel,
			GenerationTimeout: a.cfg.GenerationTimeout,
			MaxAttempts:       a.cfg.PipelineMaxAttempts,
		},
		logger.Component(a.logger, "pipeline"),
	)
	if notifier != nil {
		p.WithNotifier(notifier)
	}
	return p, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}
