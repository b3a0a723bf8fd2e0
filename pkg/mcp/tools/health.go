package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekaya-insight/pkg/graph"
	"github.com/ekaya-inc/ekaya-insight/pkg/vectorindex"
)

// HealthToolDeps describes what the health tool reports on.
type HealthToolDeps struct {
	Version   string
	Warehouse string
	Index     vectorindex.Index
	Graphs    *graph.Store
}

type healthResult struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	Warehouse       string `json:"warehouse"`
	VectorRetrieval bool   `json:"vector_retrieval"`
	GraphNodes      int    `json:"graph_nodes"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
func RegisterHealthTool(s *server.MCPServer, deps *HealthToolDeps) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version and which retrieval paths are available"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		health := healthResult{
			Status:          "ok",
			Version:         deps.Version,
			Warehouse:       deps.Warehouse,
			VectorRetrieval: deps.Index != nil && deps.Index.Available(),
		}
		if deps.Graphs != nil {
			health.GraphNodes = deps.Graphs.Current().NodeCount()
		}

		result, err := json.Marshal(health)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
