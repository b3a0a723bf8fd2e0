package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// optionalLimit reads a positive "limit" argument, capped at maxLimit.
// JSON numbers arrive as float64.
func optionalLimit(req mcp.CallToolRequest, defaultLimit, maxLimit int) (int, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	raw, ok := args["limit"]
	if !ok || raw == nil {
		return defaultLimit, nil
	}
	f, ok := raw.(float64)
	if !ok || f < 1 {
		return 0, fmt.Errorf("limit must be a positive number")
	}
	return min(int(f), maxLimit), nil
}

// jsonResult marshals v as the tool's text content.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
