package ai

import (
	"context"
	"errors"
)

// ReplyGenerator turns a fully built prompt into reply text.
// Implement this interface to add new AI providers (Gemini, Ollama, OpenAI, etc.)
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, prompt string) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)

// ErrNoProvider is returned when no generation backend is configured.
var ErrNoProvider = errors.New("no AI provider available for reply generation")
