package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/graph"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/services"
)

type fakeSynthesizer struct {
	synthesis *services.Synthesis
	err       error
	questions []string
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, question string) (*services.Synthesis, error) {
	f.questions = append(f.questions, question)
	return f.synthesis, f.err
}

type fakeRunner struct {
	result  *models.QueryResult
	err     error
	queries []string
}

func (f *fakeRunner) Run(_ context.Context, sql string) (*models.QueryResult, error) {
	f.queries = append(f.queries, sql)
	return f.result, f.err
}

type fakeRefresh struct {
	report *models.RefreshReport
	err    error
	calls  int
}

func (f *fakeRefresh) Refresh(context.Context) (*models.RefreshReport, error) {
	f.calls++
	return f.report, f.err
}

func salesGraphStore(t *testing.T) *graph.Store {
	t.Helper()
	store := graph.NewStore(filepath.Join(t.TempDir(), "graphdb.json"), zap.NewNop())
	require.NoError(t, store.Replace(graph.Build(
		[]models.Row{{"database_name": "DB", "schema_name": "PUBLIC", "table_name": "ORDERS", "row_count": int64(10)}},
		[]models.Row{{"database_name": "DB", "schema_name": "PUBLIC", "table_name": "ORDERS", "column_name": "ORDER_ID", "data_type": "NUMBER"}},
	)))
	return store
}

type toolCallResponse struct {
	Result struct {
		IsError bool `json:"isError"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// callTool sends a tools/call through the server and decodes the response.
func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) toolCallResponse {
	t.Helper()
	params := map[string]any{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	request, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  params,
	})
	require.NoError(t, err)

	result := s.HandleMessage(context.Background(), request)
	resultBytes, err := json.Marshal(result)
	require.NoError(t, err)

	var response toolCallResponse
	require.NoError(t, json.Unmarshal(resultBytes, &response))
	return response
}

func (r toolCallResponse) text(t *testing.T) string {
	t.Helper()
	require.Nil(t, r.Error, "unexpected JSON-RPC error")
	require.NotEmpty(t, r.Result.Content)
	return r.Result.Content[0].Text
}
