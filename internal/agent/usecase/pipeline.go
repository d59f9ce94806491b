package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"inbox-agent/internal/agent/domain"
	"inbox-agent/internal/agent/repository"
	"inbox-agent/pkg/metrics"

	"github.com/rs/zerolog"
)

const (
	retrievalK     = 3
	retryBatchSize = 50
)

// PipelineConfig holds the pipeline settings taken from the service config.
type PipelineConfig struct {
	DraftLabel        string
	GenerationTimeout time.Duration
	MaxAttempts       int
}

// Pipeline runs Parse -> Retrieve -> Draft -> Persist for one message at a time,
// writing a checkpoint after every stage. A run never retries a stage itself.
type Pipeline struct {
	mailbox     MailboxProvider
	retriever   Retriever
	generator   ReplyGenerator
	checkpoints repository.CheckpointRepository
	scorer      ConfidenceScorer
	notifier    DraftNotifier
	cfg         PipelineConfig
	logger      zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewPipeline(
	mailbox MailboxProvider,
	retriever Retriever,
	generator ReplyGenerator,
	checkpoints repository.CheckpointRepository,
	cfg PipelineConfig,
	logger zerolog.Logger,
) *Pipeline {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 60 * time.Second
	}
	return &Pipeline{
		mailbox:     mailbox,
		retriever:   retriever,
		generator:   generator,
		checkpoints: checkpoints,
		scorer:      HeuristicScorer{},
		cfg:         cfg,
		logger:      logger,
		inFlight:    make(map[string]struct{}),
	}
}

// WithScorer replaces the default confidence heuristic.
func (p *Pipeline) WithScorer(scorer ConfidenceScorer) *Pipeline {
	p.scorer = scorer
	return p
}

// WithNotifier registers a notifier called after each stored draft.
func (p *Pipeline) WithNotifier(notifier DraftNotifier) *Pipeline {
	p.notifier = notifier
	return p
}

// Process implements the reconciler's MessageProcessor. Done, abandoned and
// in-flight messages are skipped.
func (p *Pipeline) Process(ctx context.Context, messageID string) (bool, error) {
	_, skipped, err := p.process(ctx, messageID, false)
	return skipped, err
}

// Retry runs a message again regardless of its failure status.
func (p *Pipeline) Retry(ctx context.Context, messageID string) (*domain.MessageCheckpoint, error) {
	cp, skipped, err := p.process(ctx, messageID, true)
	if err == nil && skipped && cp == nil {
		return nil, domain.ErrMessageInFlight
	}
	return cp, err
}

// RetryFailed re-drives failed messages with attempts left, oldest first.
func (p *Pipeline) RetryFailed(ctx context.Context) (int, error) {
	cps, err := p.checkpoints.ListRetryable(ctx, p.cfg.MaxAttempts, retryBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list retryable messages: %w", err)
	}

	recovered := 0
	for _, cp := range cps {
		skipped, err := p.Process(ctx, cp.MessageID)
		if err != nil {
			p.logger.Warn().Err(err).Str("message_id", cp.MessageID).Int("attempts", cp.Attempts+1).Msg("retry failed")
			continue
		}
		if !skipped {
			recovered++
		}
	}
	if len(cps) > 0 {
		p.logger.Info().Int("candidates", len(cps)).Int("recovered", recovered).Msg("failed messages re-driven")
	}
	return recovered, nil
}

func (p *Pipeline) ListFailed(ctx context.Context, limit int) ([]domain.MessageCheckpoint, error) {
	failed, err := p.checkpoints.ListByStatus(ctx, domain.StatusFailed, limit)
	if err != nil {
		return nil, err
	}
	abandoned, err := p.checkpoints.ListByStatus(ctx, domain.StatusAbandoned, limit)
	if err != nil {
		return nil, err
	}
	out := append(failed, abandoned...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// process returns the final checkpoint, or nil when the message was already in flight.
func (p *Pipeline) process(ctx context.Context, messageID string, force bool) (*domain.MessageCheckpoint, bool, error) {
	log := p.logger.With().Str("message_id", messageID).Logger()

	if !p.acquire(messageID) {
		metrics.PipelineMessagesTotal.WithLabelValues("in_flight").Inc()
		log.Debug().Msg("message already in flight, skipping")
		return nil, true, nil
	}
	defer p.release(messageID)

	cp, err := p.checkpoints.Get(ctx, messageID)
	if errors.Is(err, domain.ErrCheckpointNotFound) {
		cp = &domain.MessageCheckpoint{MessageID: messageID, Stage: domain.StagePending}
	} else if err != nil {
		metrics.PipelineMessagesTotal.WithLabelValues("failed").Inc()
		return nil, false, fmt.Errorf("failed to load checkpoint for %s: %w", messageID, err)
	}

	if cp.Done {
		metrics.PipelineMessagesTotal.WithLabelValues("skipped").Inc()
		log.Debug().Msg("message already drafted")
		return cp, true, nil
	}
	if cp.Status == domain.StatusAbandoned && !force {
		metrics.PipelineMessagesTotal.WithLabelValues("skipped").Inc()
		log.Debug().Msg("message abandoned, skipping")
		return cp, true, nil
	}

	if err := p.run(ctx, cp, log); err != nil {
		p.fail(ctx, cp, err, log)
		metrics.PipelineMessagesTotal.WithLabelValues("failed").Inc()
		return cp, false, err
	}
	metrics.PipelineMessagesTotal.WithLabelValues("drafted").Inc()
	return cp, false, nil
}

func (p *Pipeline) run(ctx context.Context, cp *domain.MessageCheckpoint, log zerolog.Logger) error {
	messageID := cp.MessageID

	var drafted domain.Drafted
	resume := cp.Stage == domain.StageDrafted
	if resume {
		drafted = cp.State().(domain.Drafted)
	} else {
		// earlier stages restart from Parse with nothing carried over
		*cp = domain.MessageCheckpoint{
			ID:        cp.ID,
			MessageID: messageID,
			Stage:     domain.StagePending,
			Attempts:  cp.Attempts,
			CreatedAt: cp.CreatedAt,
		}
	}
	cp.Attempts++
	cp.Status = domain.StatusInProgress
	cp.LastError = ""
	if err := p.save(ctx, cp); err != nil {
		return err
	}

	if resume {
		log.Info().Str("draft_id", cp.DraftID).Msg("resuming at persist")
	} else {
		parsed, err := p.parse(ctx, messageID)
		if err != nil {
			return err
		}
		if err := p.checkpoint(ctx, cp, parsed); err != nil {
			return err
		}

		retrieved := p.retrieve(ctx, parsed, log)
		if err := p.checkpoint(ctx, cp, retrieved); err != nil {
			return err
		}

		drafted, err = p.draft(ctx, retrieved)
		if err != nil {
			return err
		}
		if err := p.checkpoint(ctx, cp, drafted); err != nil {
			return err
		}
	}

	persisted, err := p.persist(ctx, cp, drafted)
	if err != nil {
		return err
	}
	cp.Status = domain.StatusDone
	if err := p.checkpoint(ctx, cp, persisted); err != nil {
		return err
	}

	log.Info().
		Str("draft_id", persisted.DraftID).
		Float64("confidence", persisted.Confidence).
		Msg("draft stored")

	if p.notifier != nil {
		if err := p.notifier.NotifyDrafted(ctx, persisted); err != nil {
			log.Warn().Err(err).Msg("draft notification failed")
		}
	}
	return nil
}

func (p *Pipeline) parse(ctx context.Context, messageID string) (domain.Parsed, error) {
	defer observe(domain.StageParsed, time.Now())

	msg, err := p.mailbox.GetMessage(ctx, messageID)
	if err != nil {
		var fetchErr *domain.ProviderFetchError
		if errors.As(err, &fetchErr) {
			return domain.Parsed{}, err
		}
		return domain.Parsed{}, &domain.ProviderFetchError{MessageID: messageID, Err: err}
	}
	return domain.Parsed{
		Pending:         domain.Pending{ID: messageID},
		Subject:         msg.Subject,
		Sender:          msg.Sender,
		Body:            msg.Body,
		ThreadID:        msg.ThreadID,
		RFC822MessageID: msg.RFC822MessageID,
	}, nil
}

// retrieve never fails: lookup errors degrade to an empty context.
func (p *Pipeline) retrieve(ctx context.Context, parsed domain.Parsed, log zerolog.Logger) domain.Retrieved {
	defer observe(domain.StageRetrieved, time.Now())

	retrieved := domain.Retrieved{Parsed: parsed}
	query := parsed.Query()
	if query == "" || p.retriever == nil {
		return retrieved
	}

	chunks, err := p.retriever.TopK(ctx, query, retrievalK)
	if err != nil {
		log.Warn().Err(err).Msg("knowledge lookup failed, drafting without context")
		return retrieved
	}
	retrieved.Chunks = chunks
	retrieved.Context = strings.Join(chunks, "\n\n")
	return retrieved
}

func (p *Pipeline) draft(ctx context.Context, retrieved domain.Retrieved) (domain.Drafted, error) {
	defer observe(domain.StageDrafted, time.Now())

	genCtx, cancel := context.WithTimeout(ctx, p.cfg.GenerationTimeout)
	defer cancel()

	text, err := p.generator.GenerateReply(genCtx, BuildPrompt(retrieved))
	if err != nil {
		return domain.Drafted{}, &domain.GenerationError{MessageID: retrieved.MessageID(), Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Drafted{}, &domain.GenerationError{MessageID: retrieved.MessageID(), Err: domain.ErrEmptyGeneration}
	}

	return domain.Drafted{
		Retrieved:  retrieved,
		DraftText:  text,
		Confidence: p.scorer.Score(text, retrieved.Context),
	}, nil
}

// persist creates the draft and labels the message, skipping whatever an earlier
// attempt already did.
func (p *Pipeline) persist(ctx context.Context, cp *domain.MessageCheckpoint, drafted domain.Drafted) (domain.Persisted, error) {
	defer observe(domain.StagePersisted, time.Now())
	messageID := drafted.MessageID()

	labeled, err := p.mailbox.HasLabel(ctx, messageID, p.cfg.DraftLabel)
	if err != nil {
		return domain.Persisted{}, err
	}
	if labeled {
		p.logger.Info().Str("message_id", messageID).Msg("message already labeled, nothing to persist")
		return domain.Persisted{Drafted: drafted, DraftID: cp.DraftID}, nil
	}

	draftID := cp.DraftID
	if draftID == "" {
		draftID, err = p.mailbox.CreateDraft(ctx, messageID, &domain.Reply{
			ThreadID:  drafted.ThreadID,
			To:        drafted.Sender,
			Subject:   drafted.Subject,
			InReplyTo: drafted.RFC822MessageID,
			Body:      drafted.DraftText,
		})
		if err != nil {
			return domain.Persisted{}, err
		}
		// record the draft before labeling so a label failure never duplicates it
		cp.DraftID = draftID
		if err := p.save(ctx, cp); err != nil {
			return domain.Persisted{}, err
		}
	}

	if err := p.mailbox.MarkDrafted(ctx, messageID, p.cfg.DraftLabel); err != nil {
		return domain.Persisted{}, err
	}
	return domain.Persisted{Drafted: drafted, DraftID: draftID}, nil
}

func (p *Pipeline) checkpoint(ctx context.Context, cp *domain.MessageCheckpoint, state domain.MessageState) error {
	cp.Apply(state)
	return p.save(ctx, cp)
}

func (p *Pipeline) save(ctx context.Context, cp *domain.MessageCheckpoint) error {
	if err := p.checkpoints.Save(ctx, cp); err != nil {
		return fmt.Errorf("failed to save checkpoint for %s at %s: %w", cp.MessageID, cp.Stage, err)
	}
	return nil
}

func (p *Pipeline) fail(ctx context.Context, cp *domain.MessageCheckpoint, cause error, log zerolog.Logger) {
	cp.Status = domain.StatusFailed
	if domain.IsPermanent(cause) || cp.Attempts >= p.cfg.MaxAttempts {
		cp.Status = domain.StatusAbandoned
	}
	cp.LastError = cause.Error()

	log.Error().
		Err(cause).
		Str("stage", string(cp.Stage)).
		Str("status", cp.Status).
		Int("attempts", cp.Attempts).
		Msg("message pipeline failed")

	if err := p.checkpoints.Save(ctx, cp); err != nil {
		log.Error().Err(err).Msg("failed to record pipeline failure")
	}
}

func (p *Pipeline) acquire(messageID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inFlight[messageID]; busy {
		return false
	}
	p.inFlight[messageID] = struct{}{}
	return true
}

func (p *Pipeline) release(messageID string) {
	p.mu.Lock()
	delete(p.inFlight, messageID)
	p.mu.Unlock()
}

func observe(stage domain.Stage, start time.Time) {
	metrics.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
}
