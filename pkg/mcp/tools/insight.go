package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/corpus"
	"github.com/ekaya-inc/ekaya-insight/pkg/graph"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/services"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// InsightToolDeps contains dependencies for the question-answering tools.
type InsightToolDeps struct {
	Synthesizer services.QuerySynthesizer
	Runner      services.QueryRunner
	Refresh     services.RefreshService
	Graphs      *graph.Store
	DocsPath    string
	Logger      *zap.Logger
}

type askResult struct {
	models.Answer
	Cached bool `json:"cached"`
}

type graphSearchResult struct {
	Query   string        `json:"query"`
	Matches []graph.Match `json:"matches"`
}

type docsSearchResult struct {
	Query     string            `json:"query"`
	Total     int               `json:"total"`
	Documents []models.Document `json:"documents"`
}

// RegisterInsightTools registers ask_question, run_query, the two metadata
// search tools and refresh_metadata.
func RegisterInsightTools(s *server.MCPServer, deps *InsightToolDeps) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	registerAskQuestionTool(s, deps)
	registerRunQueryTool(s, deps)
	registerSearchGraphTool(s, deps)
	registerSearchDocsTool(s, deps)
	registerRefreshTool(s, deps)
}

func requireTrimmed(req mcp.CallToolRequest, name string) (string, *mcp.CallToolResult) {
	v, err := req.RequireString(name)
	if err != nil {
		return "", NewErrorResult("invalid_parameters", err.Error())
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", NewErrorResult("invalid_parameters", name+" parameter cannot be empty")
	}
	return v, nil
}

func registerAskQuestionTool(s *server.MCPServer, deps *InsightToolDeps) {
	tool := mcp.NewTool(
		"ask_question",
		mcp.WithDescription(
			"Answer a natural-language question about the warehouse. Retrieves relevant "+
				"metadata (tables, columns, statistics, query history) and returns an insight, "+
				"a suggested read-only SQL query and a chart type. The SQL is not executed; "+
				"pass it to run_query to see results. Answers are cached per question.",
		),
		mcp.WithString(
			"question",
			mcp.Required(),
			mcp.Description("The question to answer (e.g., 'What were total sales by region last quarter?')"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, errResult := requireTrimmed(req, "question")
		if errResult != nil {
			return errResult, nil
		}

		synthesis, err := deps.Synthesizer.Synthesize(ctx, question)
		if err != nil {
			if result := NewServiceErrorResult(err); result != nil {
				return result, nil
			}
			deps.Logger.Error("ask_question failed", zap.Error(err))
			return nil, err
		}
		return jsonResult(askResult{Answer: synthesis.Answer, Cached: synthesis.Cached})
	})
}

func registerRunQueryTool(s *server.MCPServer, deps *InsightToolDeps) {
	tool := mcp.NewTool(
		"run_query",
		mcp.WithDescription(
			"Execute a single read-only SELECT (or WITH ... SELECT) statement against the "+
				"warehouse and return up to 1000 rows with summary notes. Write statements, "+
				"multiple statements and injection-shaped literals are rejected.",
		),
		mcp.WithString(
			"sql",
			mcp.Required(),
			mcp.Description("The SQL statement to execute"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sqlQuery, errResult := requireTrimmed(req, "sql")
		if errResult != nil {
			return errResult, nil
		}

		result, err := deps.Runner.Run(ctx, sqlQuery)
		if err != nil {
			if errResult := NewServiceErrorResult(err); errResult != nil {
				deps.Logger.Debug("run_query rejected", zap.Error(err))
				return errResult, nil
			}
			deps.Logger.Error("run_query failed", zap.Error(err))
			return nil, err
		}
		return jsonResult(result)
	})
}

func registerSearchGraphTool(s *server.MCPServer, deps *InsightToolDeps) {
	tool := mcp.NewTool(
		"search_metadata_graph",
		mcp.WithDescription(
			"Find databases, schemas, tables and columns whose name or properties contain "+
				"a keyword (case-insensitive). Returns node ids with their properties.",
		),
		mcp.WithString(
			"query",
			mcp.Required(),
			mcp.Description("Keyword to match (e.g., 'order', 'customer_id')"),
		),
		mcp.WithNumber(
			"limit",
			mcp.Description("Maximum number of matches to return (default 20, max 100)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, errResult := requireTrimmed(req, "query")
		if errResult != nil {
			return errResult, nil
		}
		limit, err := optionalLimit(req, defaultSearchLimit, maxSearchLimit)
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		return jsonResult(graphSearchResult{
			Query:   query,
			Matches: deps.Graphs.Current().Search(query, limit),
		})
	})
}

func registerSearchDocsTool(s *server.MCPServer, deps *InsightToolDeps) {
	tool := mcp.NewTool(
		"search_metadata_docs",
		mcp.WithDescription(
			"Search the metadata document corpus built by the last refresh. Matches the "+
				"query against document ids, text and metadata values (case-insensitive).",
		),
		mcp.WithString(
			"query",
			mcp.Required(),
			mcp.Description("Text to match (e.g., 'ORDERS', 'Query history')"),
		),
		mcp.WithNumber(
			"limit",
			mcp.Description("Maximum number of documents to return (default 20, max 100)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, errResult := requireTrimmed(req, "query")
		if errResult != nil {
			return errResult, nil
		}
		limit, err := optionalLimit(req, defaultSearchLimit, maxSearchLimit)
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		docs, err := corpus.Load(deps.DocsPath)
		if err != nil {
			deps.Logger.Warn("Failed to read document corpus", zap.String("path", deps.DocsPath), zap.Error(err))
			return NewErrorResult("corpus_unavailable", "document corpus is unreadable; run refresh_metadata to rebuild it"), nil
		}
		matched := corpus.Filter(docs, query)
		total := len(matched)
		if len(matched) > limit {
			matched = matched[:limit]
		}
		return jsonResult(docsSearchResult{Query: query, Total: total, Documents: matched})
	})
}

func registerRefreshTool(s *server.MCPServer, deps *InsightToolDeps) {
	tool := mcp.NewTool(
		"refresh_metadata",
		mcp.WithDescription(
			"Re-extract warehouse metadata and rebuild the snapshot, metadata graph, "+
				"document corpus and vector index. Returns a per-stage report; stages that "+
				"could not finish are reported as degraded or failed.",
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		report, err := deps.Refresh.Refresh(ctx)
		if err != nil {
			if result := NewServiceErrorResult(err); result != nil {
				return result, nil
			}
			deps.Logger.Error("refresh_metadata failed", zap.Error(err))
			return nil, err
		}
		return jsonResult(report)
	})
}
