package chroma

import (
	"context"
	"fmt"
	"os"

	"inbox-agent/internal/knowledge/domain"
	"inbox-agent/pkg/config"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
	"github.com/rs/zerolog"
)

// maxSnippetLen keeps texts within the embedding model's token limit.
const maxSnippetLen = 10000

// KnowledgeIndex stores knowledge snippets in a Chroma collection embedded with Gemini.
type KnowledgeIndex struct {
	client      chroma.Client
	collection  chroma.Collection
	maxDistance float64
	logger      zerolog.Logger
}

// NewKnowledgeIndex connects to CHROMA_URL, or to Chroma Cloud when only an API key is set.
func NewKnowledgeIndex(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*KnowledgeIndex, error) {
	if cfg.ChromaURL == "" && cfg.ChromaAPIKey == "" {
		return nil, fmt.Errorf("CHROMA_URL or CHROMA_API_KEY is required")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for knowledge embeddings")
	}

	// the embedding function reads its key from the environment
	if err := os.Setenv("GEMINI_API_KEY", cfg.GeminiAPIKey); err != nil {
		return nil, fmt.Errorf("failed to export GEMINI_API_KEY: %w", err)
	}
	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}

	client, err := chroma.NewHTTPClient(clientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	collection, err := client.GetOrCreateCollection(
		ctx,
		cfg.ChromaCollection,
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to create collection %s: %w", cfg.ChromaCollection, err)
	}

	logger.Info().Str("collection", cfg.ChromaCollection).Msg("chroma knowledge index ready")

	return &KnowledgeIndex{
		client:      client,
		collection:  collection,
		maxDistance: cfg.KBMaxDistance,
		logger:      logger,
	}, nil
}

func clientOptions(cfg *config.Config) []chroma.ClientOption {
	var opts []chroma.ClientOption
	if cfg.ChromaURL != "" {
		opts = append(opts, chroma.WithBaseURL(cfg.ChromaURL))
	} else {
		opts = append(opts, chroma.WithBaseURL(chroma.ChromaCloudEndpoint))
	}
	if cfg.ChromaAPIKey != "" {
		opts = append(opts, chroma.WithCloudAPIKey(cfg.ChromaAPIKey))
	}

	switch {
	case cfg.ChromaDatabase != "" && cfg.ChromaTenant != "":
		opts = append(opts, chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant))
	case cfg.ChromaTenant != "":
		opts = append(opts, chroma.WithTenant(cfg.ChromaTenant))
	}
	return opts
}

// Add appends snippets. Ids come from the caller, so re-ingesting the same text adds a duplicate.
func (k *KnowledgeIndex) Add(ctx context.Context, chunks []domain.KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]chroma.DocumentID, 0, len(chunks))
	texts := make([]string, 0, len(chunks))
	metadatas := make([]chroma.DocumentMetadata, 0, len(chunks))
	for _, c := range chunks {
		text := c.Text
		if len(text) > maxSnippetLen {
			text = text[:maxSnippetLen]
		}

		metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
			"source":     c.Source,
			"created_at": c.CreatedAt.Unix(),
		})
		if err != nil {
			return fmt.Errorf("failed to create metadata: %w", err)
		}

		ids = append(ids, chroma.DocumentID(c.ID))
		texts = append(texts, text)
		metadatas = append(metadatas, metadata)
	}

	err := k.collection.Add(
		ctx,
		chroma.WithIDs(ids...),
		chroma.WithMetadatas(metadatas...),
		chroma.WithTexts(texts...),
	)
	if err != nil {
		return fmt.Errorf("failed to add knowledge snippets: %w", err)
	}
	return nil
}

// Query returns up to n nearest snippets. With KB_MAX_DISTANCE > 0, farther hits are dropped.
func (k *KnowledgeIndex) Query(ctx context.Context, query string, n int) ([]domain.ScoredChunk, error) {
	results, err := k.collection.Query(
		ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(n),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}
	if results == nil || results.CountGroups() == 0 {
		return []domain.ScoredChunk{}, nil
	}

	idGroups := results.GetIDGroups()
	docGroups := results.GetDocumentsGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(idGroups) == 0 || len(docGroups) == 0 {
		return []domain.ScoredChunk{}, nil
	}

	ids := idGroups[0]
	docs := docGroups[0]
	hits := make([]domain.ScoredChunk, 0, len(ids))
	for i, id := range ids {
		if i >= len(docs) || docs[i] == nil {
			continue
		}

		hit := domain.ScoredChunk{KnowledgeChunk: domain.KnowledgeChunk{
			ID:   string(id),
			Text: docs[i].ContentString(),
		}}
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			hit.Distance = float64(distanceGroups[0][i])
			hit.Score = 1 / (1 + hit.Distance)
		}
		if k.maxDistance > 0 && hit.Distance > k.maxDistance {
			k.logger.Debug().Str("id", hit.ID).Float64("distance", hit.Distance).Msg("snippet beyond max distance")
			continue
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (k *KnowledgeIndex) Close() error {
	return k.client.Close()
}
