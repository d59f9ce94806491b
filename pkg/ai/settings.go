package ai

import "sync"

// RuntimeSettings holds the Ollama settings that admins can change without a restart.
type RuntimeSettings struct {
	mu      sync.RWMutex
	baseURL string
	model   string
}

// NewRuntimeSettings initializes runtime settings from static config
func NewRuntimeSettings(baseURL, model string) *RuntimeSettings {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &RuntimeSettings{baseURL: baseURL, model: model}
}

func (s *RuntimeSettings) OllamaBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseURL
}

func (s *RuntimeSettings) OllamaModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// Update replaces the base URL and, when non-empty, the model.
func (s *RuntimeSettings) Update(baseURL, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURL = baseURL
	if model != "" {
		s.model = model
	}
}
