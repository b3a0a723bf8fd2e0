package llm

import (
	"context"
	"fmt"
	"time"
)

// TestResult contains provider connection test results.
type TestResult struct {
	Success            bool      `json:"success"`
	Message            string    `json:"message"`
	LLMSuccess         bool      `json:"llm_success"`
	LLMMessage         string    `json:"llm_message,omitempty"`
	LLMErrorType       ErrorType `json:"llm_error_type,omitempty"`
	LLMResponseTimeMs  int64     `json:"llm_response_time_ms,omitempty"`
	EmbeddingSuccess   bool      `json:"embedding_success"`
	EmbeddingMessage   string    `json:"embedding_message,omitempty"`
	EmbeddingErrorType ErrorType `json:"embedding_error_type,omitempty"`
}

// ConnectionTester probes the configured generation and embedding clients.
type ConnectionTester interface {
	Test(ctx context.Context) *TestResult
}

type connectionTester struct {
	generator LLMClient
	embedder  EmbeddingClient
	timeout   time.Duration
}

var _ ConnectionTester = (*connectionTester)(nil)

// NewConnectionTester accepts nil clients; a nil client is reported as not
// configured rather than failed.
func NewConnectionTester(generator LLMClient, embedder EmbeddingClient) ConnectionTester {
	return &connectionTester{generator: generator, embedder: embedder, timeout: 30 * time.Second}
}

func (t *connectionTester) Test(ctx context.Context) *TestResult {
	result := &TestResult{}

	if t.generator == nil {
		result.LLMMessage = "LLM not configured"
		result.LLMErrorType = ErrorTypeAuth
	} else {
		t.testLLM(ctx, result)
	}

	if t.embedder == nil {
		result.EmbeddingMessage = "Embedding not configured"
	} else {
		t.testEmbedding(ctx, result)
	}

	switch {
	case result.LLMSuccess && result.EmbeddingSuccess:
		result.Success = true
		result.Message = "LLM and embedding connections successful"
	case result.LLMSuccess && t.embedder == nil:
		result.Success = true
		result.Message = "LLM connection successful (embedding not configured)"
	case result.LLMSuccess:
		result.Success = true
		result.Message = "LLM connection successful, embedding failed"
	default:
		result.Message = result.LLMMessage
	}
	return result
}

func (t *connectionTester) testLLM(ctx context.Context, result *TestResult) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	resp, err := t.generator.GenerateResponse(ctx, "Say 'ok' and nothing else.", "You are a connectivity check.", 0)
	result.LLMResponseTimeMs = time.Since(start).Milliseconds()

	if err != nil {
		classified := ClassifyError(err)
		result.LLMMessage = "LLM: " + classified.Message
		result.LLMErrorType = classified.Type
		return
	}
	if resp == nil || resp.Content == "" {
		result.LLMMessage = "LLM returned no response"
		result.LLMErrorType = ErrorTypeUnknown
		return
	}

	result.LLMSuccess = true
	result.LLMMessage = fmt.Sprintf("LLM connection successful (model: %s, %dms)",
		t.generator.GetModel(), result.LLMResponseTimeMs)
}

func (t *connectionTester) testEmbedding(ctx context.Context, result *TestResult) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	vectors, err := t.embedder.CreateEmbeddings(ctx, []string{"test"})
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		classified := ClassifyError(err)
		result.EmbeddingMessage = "Embedding: " + classified.Message
		result.EmbeddingErrorType = classified.Type
		return
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		result.EmbeddingMessage = "Embedding returned no vectors"
		result.EmbeddingErrorType = ErrorTypeUnknown
		return
	}

	result.EmbeddingSuccess = true
	result.EmbeddingMessage = fmt.Sprintf("Embedding successful (%dms, %d dims)", elapsed, len(vectors[0]))
}
