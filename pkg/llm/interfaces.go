// Package llm provides the generation and embedding clients.
package llm

import (
	"context"
)

// LLMClient generates chat completions.
// Use this interface for dependency injection to enable mocking in tests.
type LLMClient interface {
	// GenerateResponse sends one system message and one user prompt.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the provider endpoint.
	GetEndpoint() string
}

// EmbeddingClient turns text into vectors. Output order matches input order.
type EmbeddingClient interface {
	CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error)
}

// GenerateResponseResult is a completion with its token usage.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

var (
	_ LLMClient       = (*Client)(nil)
	_ EmbeddingClient = (*Client)(nil)
	_ LLMClient       = (*AnthropicClient)(nil)
)
