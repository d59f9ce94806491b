package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "llama3"
)

// OllamaService implements ReplyGenerator using Ollama local LLM
type OllamaService struct {
	client     *resty.Client
	getBaseURL func() string // Dynamic getter for BaseURL
	getModel   func() string // Dynamic getter for Model
}

// NewOllamaService creates a new Ollama service with fixed settings
func NewOllamaService(baseURL, model string) *OllamaService {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return NewOllamaServiceWithGetters(
		func() string { return baseURL },
		func() string { return model },
	)
}

// NewOllamaServiceWithGetters creates a new Ollama service with dynamic getters
func NewOllamaServiceWithGetters(getBaseURL, getModel func() string) *OllamaService {
	client := resty.New().SetHeader("Content-Type", "application/json")
	return &OllamaService{
		client:     client,
		getBaseURL: getBaseURL,
		getModel:   getModel,
	}
}

type generateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// GenerateReply implements ReplyGenerator
func (o *OllamaService) GenerateReply(ctx context.Context, prompt string) (string, error) {
	var result generateResponse
	resp, err := o.client.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetBody(&generateRequest{
			Model:  o.getModel(),
			Prompt: prompt,
			Stream: false,
			Options: map[string]interface{}{
				"temperature": 0.3,
			},
		}).
		SetResult(&result).
		Post(o.endpoint("/api/generate"))
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("ollama API error (%d): %s", resp.StatusCode(), resp.String())
	}

	return strings.TrimSpace(result.Response), nil
}

// ListModels calls /api/tags; it doubles as a connectivity check.
func (o *OllamaService) ListModels(ctx context.Context, baseURL string) ([]string, error) {
	if baseURL == "" {
		baseURL = o.getBaseURL()
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	resp, err := o.client.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetResult(&result).
		Get(strings.TrimRight(baseURL, "/") + "/api/tags")
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("ollama API error (%d)", resp.StatusCode())
	}

	names := make([]string, 0, len(result.Models))
	for _, m := range result.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (o *OllamaService) endpoint(path string) string {
	return strings.TrimRight(o.getBaseURL(), "/") + path
}
