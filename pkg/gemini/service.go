package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.5-flash"
)

type GeminiService struct {
	client *resty.Client
	apiKey string
	model  string
}

func NewGeminiService(apiKey, model string) *GeminiService {
	if model == "" {
		model = defaultModel
	}
	client := resty.New().
		SetBaseURL(defaultBaseURL).
		SetHeader("Content-Type", "application/json")
	return &GeminiService{client: client, apiKey: apiKey, model: model}
}

// WithBaseURL points the client at another endpoint.
func (g *GeminiService) WithBaseURL(baseURL string) *GeminiService {
	g.client.SetBaseURL(baseURL)
	return g
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

// GenerateReply calls generateContent and returns the text of the first candidate.
// An empty string with a nil error means the model produced nothing.
func (g *GeminiService) GenerateReply(ctx context.Context, prompt string) (string, error) {
	var result generateContentResponse
	resp, err := g.client.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetQueryParam("key", g.apiKey).
		SetBody(&generateContentRequest{
			Contents: []content{{Parts: []part{{Text: prompt}}}},
		}).
		SetResult(&result).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", g.model))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("Gemini API error (%d): %s", resp.StatusCode(), resp.String())
	}

	if len(result.Candidates) == 0 {
		return "", nil
	}
	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}
