package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/archgraph/internal/config"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// NewClient builds the generator for cfg.Provider.
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLMClient, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.SystemRole, cfg.MaxTokens), nil

	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.SystemRole)

	case "claude":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.SystemRole, cfg.MaxTokens), nil

	case "groq":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = groqBaseURL
		}
		model := cfg.Model
		if model == "" {
			model = "llama3-8b-8192"
		}
		return NewOpenAIClient(cfg.APIKey, model, baseURL, cfg.SystemRole, cfg.MaxTokens), nil

	case "ollama":
		// Ollama is reached through its OpenAI-compatible API.
		baseURL := ollamaBaseURL(cfg.BaseURL)

		// Ollama ignores the key but the client requires one.
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}

		return NewOpenAIClient(apiKey, cfg.Model, baseURL, cfg.SystemRole, cfg.MaxTokens), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}

func ollamaBaseURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if strings.HasSuffix(baseURL, "/v1") {
		return baseURL
	}
	return fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
}
