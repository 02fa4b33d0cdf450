package models

import (
	"context"
	"fmt"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"

	"github.com/easeaico/companion/internal/config"
)

// NewLLM creates the model for the configured provider.
func NewLLM(ctx context.Context, cfg config.Config, modelName string) (model.LLM, error) {
	switch cfg.OracleProvider {
	case config.ProviderGemini:
		llm, err := gemini.NewModel(ctx, modelName, &genai.ClientConfig{
			APIKey:  cfg.GoogleAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini model: %w", err)
		}
		return llm, nil
	case config.ProviderGrok:
		return NewGrokModel(ctx, modelName, &genai.ClientConfig{APIKey: cfg.XAIAPIKey})
	case config.ProviderOpenRouter:
		return NewOpenRouterModel(ctx, modelName, &genai.ClientConfig{APIKey: cfg.OpenRouterAPIKey})
	case config.ProviderAnthropic:
		return NewAnthropicModel(ctx, modelName, cfg.AnthropicAPIKey)
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.OracleProvider)
	}
}
