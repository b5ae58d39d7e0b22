package ai

import "fmt"

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "gemini", "ollama" or "auto"

	// Gemini config
	GeminiAPIKey string

	// Ollama config
	OllamaBaseURL string // e.g., "http://localhost:11434"
	OllamaModel   string // e.g., "llama3", "mistral"
}

// DynamicConfig is Config with runtime-updatable Ollama settings.
type DynamicConfig struct {
	Provider         ProviderType
	GeminiAPIKey     string
	GetOllamaBaseURL func() string
	GetOllamaModel   func() string
}

// NewClassifierService creates a ClassifierService based on the config.
// This is the factory function - switch AI provider by changing config.Provider
func NewClassifierService(cfg Config) (ClassifierService, error) {
	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewGeminiService(cfg.GeminiAPIKey), nil

	case ProviderOllama:
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel), nil

	default:
		// Auto: prefer Gemini with Ollama fallback when both are configured.
		if cfg.GeminiAPIKey != "" {
			gemini := NewGeminiService(cfg.GeminiAPIKey)
			if cfg.OllamaBaseURL != "" {
				return NewFallbackService(gemini, NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel)), nil
			}
			return gemini, nil
		}
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel), nil
	}
}

// NewClassifierServiceWithDynamicConfig is the factory used by the settings
// API: the Ollama endpoint can be repointed without a restart.
func NewClassifierServiceWithDynamicConfig(cfg DynamicConfig) (ClassifierService, error) {
	ollama := NewOllamaServiceWithGetters(cfg.GetOllamaBaseURL, cfg.GetOllamaModel)

	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewGeminiService(cfg.GeminiAPIKey), nil

	case ProviderOllama:
		return ollama, nil

	default:
		if cfg.GeminiAPIKey != "" {
			return NewFallbackService(NewGeminiService(cfg.GeminiAPIKey), ollama), nil
		}
		return ollama, nil
	}
}
