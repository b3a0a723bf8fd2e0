package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
)

func serveMCP(t *testing.T, logger *zap.Logger, reqBody, respBody string) *httptest.ResponseRecorder {
	t.Helper()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(respBody))
	})
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(reqBody))
	rec := httptest.NewRecorder()
	MCPRequestLogger(logger)(handler).ServeHTTP(rec, req)
	return rec
}

func TestMCPRequestLogger(t *testing.T) {
	t.Run("logs successful tool call", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)

		serveMCP(t, zap.New(core),
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"ask_question","arguments":{"question":"top customers?"}}}`,
			`{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"{}"}]}}`)

		require.Equal(t, 2, logs.Len())
		requestLog := logs.All()[0]
		assert.Equal(t, "MCP request", requestLog.Message)
		assert.Equal(t, "tools/call", requestLog.ContextMap()["method"])
		assert.Equal(t, "ask_question", requestLog.ContextMap()["tool"])

		responseLog := logs.All()[1]
		assert.Equal(t, "MCP response success", responseLog.Message)
		assert.Equal(t, "ask_question", responseLog.ContextMap()["tool"])
		assert.NotNil(t, responseLog.ContextMap()["duration"])
	})

	t.Run("logs JSON-RPC error response", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)

		serveMCP(t, zap.New(core),
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"nope"}}`,
			`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"tool not found"}}`)

		responseLog := logs.All()[1]
		assert.Equal(t, "MCP response error", responseLog.Message)
		assert.Equal(t, int64(-32602), responseLog.ContextMap()["error_code"])
		assert.Equal(t, "tool not found", responseLog.ContextMap()["error_message"])
	})

	t.Run("logs tool error result", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)

		serveMCP(t, zap.New(core),
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"run_query","arguments":{"sql":"DELETE FROM t"}}}`,
			`{"jsonrpc":"2.0","id":1,"result":{"isError":true,"content":[{"type":"text","text":"{}"}]}}`)

		assert.Equal(t, "MCP tool error", logs.All()[1].Message)
	})

	t.Run("passes through with nil logger", func(t *testing.T) {
		rec := serveMCP(t, nil, `{}`, `{}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("handles malformed JSON request gracefully", func(t *testing.T) {
		core, _ := observer.New(zapcore.DebugLevel)
		rec := serveMCP(t, zap.New(core), `{invalid json`, `{"error":"bad request"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("handles empty request body", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		serveMCP(t, zap.New(core), "", "")
		assert.Equal(t, "MCP request", logs.All()[0].Message)
	})
}

func TestSanitizeArguments(t *testing.T) {
	t.Run("redacts sensitive keywords case-insensitively", func(t *testing.T) {
		result := sanitizeArguments(map[string]any{
			"password":     "secret",
			"Api_Key":      "abc123",
			"AccessToken":  "xyz789",
			"credential":   "cred123",
			"question":     "visible",
		})

		assert.Equal(t, logging.RedactedText, result["password"])
		assert.Equal(t, logging.RedactedText, result["Api_Key"])
		assert.Equal(t, logging.RedactedText, result["AccessToken"])
		assert.Equal(t, logging.RedactedText, result["credential"])
		assert.Equal(t, "visible", result["question"])
	})

	t.Run("sql goes through the query sanitizer", func(t *testing.T) {
		sql := "SELECT " + strings.Repeat("col, ", 40) + "x FROM t"
		result := sanitizeArguments(map[string]any{"sql": sql})
		assert.Equal(t, logging.SanitizeQuery(sql), result["sql"])
	})

	t.Run("truncates long strings", func(t *testing.T) {
		result := sanitizeArguments(map[string]any{
			"question": strings.Repeat("a", 250),
			"short":    "abc",
		})

		truncated := result["question"].(string)
		assert.Len(t, truncated, maxArgumentLogLength+3)
		assert.True(t, strings.HasSuffix(truncated, "..."))
		assert.Equal(t, "abc", result["short"])
	})

	t.Run("preserves non-string values", func(t *testing.T) {
		result := sanitizeArguments(map[string]any{"limit": float64(20), "flag": true, "null": nil})
		assert.Equal(t, float64(20), result["limit"])
		assert.Equal(t, true, result["flag"])
		assert.Nil(t, result["null"])
	})

	t.Run("nil and empty", func(t *testing.T) {
		assert.Nil(t, sanitizeArguments(nil))
		assert.Empty(t, sanitizeArguments(map[string]any{}))
	})
}
