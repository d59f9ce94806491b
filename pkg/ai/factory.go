package ai

import (
	"fmt"
	"strings"

	"inbox-agent/pkg/gemini"

	"github.com/rs/zerolog"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "gemini", "ollama" or "auto"

	GeminiAPIKey string
	GeminiModel  string
}

// NewReplyGenerator creates a ReplyGenerator based on the config.
// Ollama connection settings come from settings so they can change at runtime.
func NewReplyGenerator(cfg Config, settings *RuntimeSettings, logger zerolog.Logger) (ReplyGenerator, error) {
	ollama := NewOllamaServiceWithGetters(settings.OllamaBaseURL, settings.OllamaModel)

	switch ProviderType(strings.ToLower(string(cfg.Provider))) {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return gemini.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel), nil

	case ProviderOllama:
		return ollama, nil

	case ProviderAuto, "":
		// Gemini first when a key is available, Ollama as the fallback
		if cfg.GeminiAPIKey == "" {
			return ollama, nil
		}
		return NewFallbackService(gemini.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel), ollama, logger), nil

	default:
		return nil, fmt.Errorf("unsupported AI_PROVIDER: %s", cfg.Provider)
	}
}
