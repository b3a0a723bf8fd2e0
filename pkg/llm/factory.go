package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
)

// NewGenerationClient builds the client for cfg.Provider. A missing key
// returns apperrors.ErrGenerationNotConfigured so callers can still serve
// retrieval-only requests.
func NewGenerationClient(cfg *config.LLMConfig, logger *zap.Logger) (LLMClient, error) {
	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", apperrors.ErrGenerationNotConfigured)
		}
		return NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.MaxTokens, logger)
	case "openai", "":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", apperrors.ErrGenerationNotConfigured)
		}
		return NewClient(&Config{
			Endpoint:       cfg.OpenAIBaseURL,
			APIKey:         cfg.OpenAIAPIKey,
			Model:          cfg.Model,
			EmbeddingModel: cfg.EmbeddingModel,
			MaxTokens:      cfg.MaxTokens,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// NewEmbeddingClient always uses the OpenAI-compatible endpoint. Without a key
// it returns apperrors.ErrVectorIndexUnavailable.
func NewEmbeddingClient(cfg *config.LLMConfig, logger *zap.Logger) (EmbeddingClient, error) {
	if !cfg.EmbeddingsAvailable() {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", apperrors.ErrVectorIndexUnavailable)
	}
	return NewClient(&Config{
		Endpoint:       cfg.OpenAIBaseURL,
		APIKey:         cfg.OpenAIAPIKey,
		EmbeddingModel: cfg.EmbeddingModel,
	}, logger)
}
