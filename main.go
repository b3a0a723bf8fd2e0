package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/app"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "ekaya-insight",
	Short: "Answer business questions over warehouse metadata",
	Long: "ekaya-insight extracts warehouse metadata into a snapshot, a metadata graph and a " +
		"vector index, then answers natural-language questions with an insight, a suggested " +
		"SQL query and a chart hint. It serves an HTTP API and an MCP endpoint.",
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = Version
	rootCmd.AddCommand(serveCmd, refreshCmd, askCmd, testConnectionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the application. The caller owns
// the returned App and must Close it and Sync the logger.
func bootstrap(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(Version)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("warehouse", cfg.Warehouse.Type),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("vector_backend", cfg.Vector.Backend),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("neo4j", cfg.Neo4j.Enabled()),
		zap.String("data_dir", cfg.Storage.DataDir),
	)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

func shutdown(a *app.App) {
	a.Close(context.Background())
	_ = a.Logger.Sync()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
