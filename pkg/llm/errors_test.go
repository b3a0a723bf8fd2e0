package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	err := &Error{Type: ErrorTypeAuth, Message: "authentication failed", StatusCode: 401, Model: "gpt-4o-mini"}
	assert.Equal(t, "auth HTTP 401 model=gpt-4o-mini authentication failed", err.Error())

	minimal := &Error{Type: ErrorTypeAuth, Message: "authentication failed"}
	assert.Equal(t, "auth authentication failed", minimal.Error())

	cause := errors.New("boom")
	wrapped := NewError(ErrorTypeUnknown, "llm error", false, cause)
	assert.Equal(t, "unknown llm error: boom", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantType   ErrorType
		wantStatus int
		retryable  bool
	}{
		{"503", errors.New("HTTP 503 Service Unavailable"), ErrorTypeEndpoint, 503, true},
		{"500", errors.New("status code: 500, message: internal"), ErrorTypeEndpoint, 500, true},
		{"429", errors.New("HTTP 429 Too Many Requests"), ErrorTypeRateLimited, 429, true},
		{"anthropic rate limit", errors.New("anthropic api error type: rate_limit_error, message: slow down"), ErrorTypeRateLimited, 0, true},
		{"anthropic overloaded", errors.New("anthropic api error type: overloaded_error, message: busy"), ErrorTypeEndpoint, 0, true},
		{"401", errors.New("HTTP 401 Unauthorized"), ErrorTypeAuth, 401, false},
		{"404", errors.New("HTTP 404 Not Found"), ErrorTypeEndpoint, 404, false},
		{"model missing", errors.New("the model `gpt-9` does not exist"), ErrorTypeModel, 0, false},
		{"connection refused", errors.New("dial tcp: connection refused"), ErrorTypeEndpoint, 0, true},
		{"deadline", errors.New("context deadline exceeded"), ErrorTypeEndpoint, 0, true},
		{"cancelled", errors.New("context canceled"), ErrorTypeUnknown, 0, false},
		{"unknown", errors.New("something odd"), ErrorTypeUnknown, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantStatus, got.StatusCode)
			assert.Equal(t, tt.retryable, got.IsRetryable())
			assert.Equal(t, tt.retryable, IsRetryable(got))
		})
	}
}

func TestClassifyError_PreservesExistingError(t *testing.T) {
	orig := NewError(ErrorTypeModel, "model not found", false, nil)
	wrapped := fmt.Errorf("generate: %w", orig)

	assert.Same(t, orig, ClassifyError(wrapped))
	assert.Nil(t, ClassifyError(nil))
	assert.Equal(t, ErrorTypeModel, GetErrorType(wrapped))
	assert.Equal(t, ErrorTypeUnknown, GetErrorType(errors.New("plain")))
}

func TestExtractStatusCode(t *testing.T) {
	tests := []struct {
		errStr string
		want   int
	}{
		{"HTTP 503 Service Unavailable", 503},
		{"status 429 rate limited", 429},
		{"status: 500", 500},
		{"code 502 bad gateway", 502},
		{"error, status code: 401, message: bad key", 401},
		{"Status: 404 Not Found", 404},
		{"processed 503 records", 0},
		{"port 5432 connection failed", 0},
		{"error after 429 seconds", 0},
	}

	for _, tt := range tests {
		t.Run(tt.errStr, func(t *testing.T) {
			assert.Equal(t, tt.want, extractStatusCode(tt.errStr))
		})
	}
}
