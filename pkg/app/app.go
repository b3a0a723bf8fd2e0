// Package app wires configuration into the insight services and their HTTP
// and MCP surfaces.
package app

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/warehouse"
	_ "github.com/ekaya-inc/ekaya-insight/pkg/adapters/warehouse/mssql"
	_ "github.com/ekaya-inc/ekaya-insight/pkg/adapters/warehouse/postgres"
	_ "github.com/ekaya-inc/ekaya-insight/pkg/adapters/warehouse/snowflake"
	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/cache"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/graph"
	"github.com/ekaya-inc/ekaya-insight/pkg/handlers"
	"github.com/ekaya-inc/ekaya-insight/pkg/llm"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/mcp"
	"github.com/ekaya-inc/ekaya-insight/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-insight/pkg/middleware"
	"github.com/ekaya-inc/ekaya-insight/pkg/services"
	"github.com/ekaya-inc/ekaya-insight/pkg/storage"
	"github.com/ekaya-inc/ekaya-insight/pkg/vectorindex"
)

// ServiceName identifies the process in MCP metadata and ping responses.
const ServiceName = "ekaya-insight"

// App holds every long-lived dependency. Fields are exported so commands and
// tests can reach individual services.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Opener    warehouse.Opener
	Snapshots storage.SnapshotStore
	Graphs    *graph.Store
	Mirror    graph.Mirror
	Index     vectorindex.Index
	Cache     cache.Store
	Generator llm.LLMClient
	Embedder  llm.EmbeddingClient

	Extractor   services.MetadataExtractor
	Selector    services.ContextSelector
	Synthesizer services.QuerySynthesizer
	Runner      services.QueryRunner
	Refresh     services.RefreshService
}

// New builds the application from cfg. Optional backends degrade instead of
// failing startup: a missing LLM key disables generation, an unreachable
// Neo4j disables mirroring, and a vector backend that cannot be opened
// leaves retrieval to the graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Config:    cfg,
		Logger:    logger,
		Opener:    warehouse.NewOpener(&cfg.Warehouse, logger),
		Snapshots: storage.NewSnapshotStore(cfg.Storage.SnapshotPath),
		Graphs:    graph.NewStore(cfg.Storage.GraphPath, logger),
	}

	generator, err := llm.NewGenerationClient(&cfg.LLM, logger)
	switch {
	case errors.Is(err, apperrors.ErrGenerationNotConfigured):
		logger.Warn("Generation disabled", zap.String("reason", err.Error()))
	case err != nil:
		return nil, err
	default:
		a.Generator = generator
	}

	if cfg.LLM.EmbeddingsAvailable() {
		embedder, err := llm.NewEmbeddingClient(&cfg.LLM, logger)
		if err != nil {
			return nil, err
		}
		a.Embedder = embedder
	}

	a.Mirror, err = graph.NewMirror(ctx, &cfg.Neo4j, logger)
	if err != nil {
		logger.Warn("Neo4j mirror disabled", zap.String("error", logging.SanitizeError(err)))
		a.Mirror = graph.NoopMirror{}
	}

	a.Index, err = vectorindex.New(ctx, cfg, a.Embedder, logger)
	if err != nil {
		logger.Warn("Vector index unavailable", zap.String("backend", cfg.Vector.Backend), zap.Error(err))
		a.Index = vectorindex.NewUnavailable(err.Error())
	}

	a.Cache, err = cache.New(ctx, &cfg.Cache, logger)
	if err != nil {
		a.closeBackends(ctx)
		return nil, err
	}

	a.Extractor = services.NewMetadataExtractor(a.Opener, a.Snapshots, services.MetadataExtractorConfig{
		MaxStatsColumns: cfg.Retrieval.MaxStatsColumns,
	}, logger)
	a.Selector = services.NewContextSelector(a.Index, a.Graphs, cfg.Retrieval.TopK, logger)
	a.Synthesizer = services.NewQuerySynthesizer(a.Selector, a.Generator, a.Cache, services.QuerySynthesizerConfig{
		TTL:         cfg.Cache.TTL(),
		Temperature: float64(cfg.LLM.Temperature),
		MaxSnippets: cfg.Retrieval.MaxSnippets,
	}, logger)
	a.Runner = services.NewQueryRunner(a.Opener, logger)
	a.Refresh = services.NewRefreshService(a.Extractor, a.Graphs, a.Mirror, a.Index, cfg.Storage.DocsPath, logger)

	return a, nil
}

// ConnectionTester probes the configured model clients.
func (a *App) ConnectionTester() llm.ConnectionTester {
	return llm.NewConnectionTester(a.Generator, a.Embedder)
}

// NewMCPServer registers every insight tool on a fresh MCP server.
func (a *App) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(ServiceName, a.Config.Version, a.Logger)
	tools.RegisterHealthTool(server.MCP(), &tools.HealthToolDeps{
		Version:   a.Config.Version,
		Warehouse: a.Config.Warehouse.Type,
		Index:     a.Index,
		Graphs:    a.Graphs,
	})
	tools.RegisterInsightTools(server.MCP(), &tools.InsightToolDeps{
		Synthesizer: a.Synthesizer,
		Runner:      a.Runner,
		Refresh:     a.Refresh,
		Graphs:      a.Graphs,
		DocsPath:    a.Config.Storage.DocsPath,
		Logger:      a.Logger.Named("mcp-tools"),
	})
	return server
}

// Handler returns the HTTP API and the /mcp endpoint behind request logging.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	handlers.NewHealthHandler(a.Config, a.Snapshots, a.Graphs, a.Index, a.Logger).RegisterRoutes(mux)
	handlers.NewAskHandler(a.Synthesizer, a.Logger).RegisterRoutes(mux)
	handlers.NewQueryHandler(a.Runner, a.Logger).RegisterRoutes(mux)
	handlers.NewMetadataHandler(a.Snapshots, a.Config.Storage.DocsPath, a.Graphs, a.Refresh, a.Logger).RegisterRoutes(mux)
	handlers.NewConnectionHandler(a.Opener, a.ConnectionTester(), a.Logger).RegisterRoutes(mux)
	handlers.NewMCPHandler(a.NewMCPServer(), a.Logger).RegisterRoutes(mux)

	return middleware.RequestLogger(a.Logger)(mux)
}

// Close releases backend connections. Errors are logged, not returned.
func (a *App) Close(ctx context.Context) {
	a.closeBackends(ctx)
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn("Failed to close cache", zap.Error(err))
		}
	}
}

func (a *App) closeBackends(ctx context.Context) {
	if a.Index != nil {
		if err := a.Index.Close(); err != nil {
			a.Logger.Warn("Failed to close vector index", zap.Error(err))
		}
	}
	if a.Mirror != nil {
		if err := a.Mirror.Close(ctx); err != nil {
			a.Logger.Warn("Failed to close graph mirror", zap.Error(err))
		}
	}
}
