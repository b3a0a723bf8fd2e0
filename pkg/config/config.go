package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all configuration for ekaya-insight.
// Values come from an optional YAML file (config.yaml) with environment
// variables taking precedence. Secrets (passwords, API keys) are only read
// from the environment.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3450"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFile  string `yaml:"log_file" env:"LOG_FILE" env-default:"./logs/app.log"`
	Version  string `yaml:"-"`

	Warehouse WarehouseConfig `yaml:"warehouse"`
	Storage   StorageConfig   `yaml:"storage"`
	LLM       LLMConfig       `yaml:"llm"`
	Vector    VectorConfig    `yaml:"vector"`
	Neo4j     Neo4jConfig     `yaml:"neo4j"`
	Cache     CacheConfig     `yaml:"cache"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// WarehouseConfig selects and configures the warehouse adapter.
type WarehouseConfig struct {
	// Type is the registered adapter name: snowflake, postgres or mssql.
	Type string `yaml:"type" env:"WAREHOUSE_TYPE" env-default:"snowflake"`
	// BatteryFile optionally replaces the embedded introspection queries.
	BatteryFile         string `yaml:"battery_file" env:"WAREHOUSE_BATTERY_FILE" env-default:""`
	QueryTimeoutSeconds int    `yaml:"query_timeout_seconds" env:"WAREHOUSE_QUERY_TIMEOUT_SECONDS" env-default:"120"`

	Snowflake SnowflakeConfig `yaml:"snowflake"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	MSSQL     MSSQLConfig     `yaml:"mssql"`
}

// QueryTimeout returns the per-statement timeout.
func (c *WarehouseConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// SnowflakeConfig mirrors the SNOWFLAKE_* environment contract. An empty
// Database switches extraction to the account-wide battery.
type SnowflakeConfig struct {
	Account   string `yaml:"account" env:"SNOWFLAKE_ACCOUNT" env-default:""`
	User      string `yaml:"user" env:"SNOWFLAKE_USER" env-default:""`
	Password  string `yaml:"-" env:"SNOWFLAKE_PASSWORD"`
	Warehouse string `yaml:"warehouse" env:"SNOWFLAKE_WAREHOUSE" env-default:""`
	Database  string `yaml:"database" env:"SNOWFLAKE_DATABASE" env-default:""`
	Role      string `yaml:"role" env:"SNOWFLAKE_ROLE" env-default:""`
	Schema    string `yaml:"schema" env:"SNOWFLAKE_SCHEMA" env-default:""`
}

// PostgresConfig configures a PostgreSQL warehouse.
type PostgresConfig struct {
	Host     string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User     string `yaml:"user" env:"PGUSER" env-default:"postgres"`
	Password string `yaml:"-" env:"PGPASSWORD"`
	Database string `yaml:"database" env:"PGDATABASE" env-default:""`
	SSLMode  string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// ConnectionString returns a libpq keyword/value connection string.
func (c *PostgresConfig) ConnectionString() string {
	s := fmt.Sprintf("host=%s port=%d user=%s password=%s sslmode=%s",
		ResolveHostForDocker(c.Host), c.Port, c.User, c.Password, c.SSLMode)
	if c.Database != "" {
		s += " dbname=" + c.Database
	}
	return s
}

// MSSQLConfig configures a SQL Server warehouse.
type MSSQLConfig struct {
	Host     string `yaml:"host" env:"MSSQL_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"MSSQL_PORT" env-default:"1433"`
	User     string `yaml:"user" env:"MSSQL_USER" env-default:"sa"`
	Password string `yaml:"-" env:"MSSQL_PASSWORD"`
	Database string `yaml:"database" env:"MSSQL_DATABASE" env-default:""`
}

// StorageConfig holds the local file locations for persisted state.
type StorageConfig struct {
	DataDir      string `yaml:"data_dir" env:"DATA_DIR" env-default:"./data"`
	SnapshotPath string `yaml:"snapshot_path" env:"SNAPSHOT_PATH" env-default:""`
	DocsPath     string `yaml:"docs_path" env:"DOCS_PATH" env-default:""`
	GraphPath    string `yaml:"graph_path" env:"GRAPH_PATH" env-default:"./data/graphdb.json"`
}

// LLMConfig configures the generation and embedding clients.
type LLMConfig struct {
	// Provider selects the generation client: openai or anthropic.
	Provider        string  `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	OpenAIAPIKey    string  `yaml:"-" env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string  `yaml:"openai_base_url" env:"OPENAI_BASE_URL" env-default:""`
	Model           string  `yaml:"model" env:"OPENAI_MODEL" env-default:"gpt-4o-mini"`
	EmbeddingModel  string  `yaml:"embedding_model" env:"OPENAI_EMBEDDING_MODEL" env-default:"text-embedding-3-large"`
	AnthropicAPIKey string  `yaml:"-" env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string  `yaml:"anthropic_model" env:"ANTHROPIC_MODEL" env-default:"claude-3-5-sonnet-latest"`
	Temperature     float32 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.1"`
	MaxTokens       int     `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"1024"`
}

// EmbeddingsAvailable reports whether an embedding credential is configured.
func (c *LLMConfig) EmbeddingsAvailable() bool {
	return c.OpenAIAPIKey != ""
}

// VectorConfig configures the semantic index.
type VectorConfig struct {
	// Backend is sqlite (embedded, stored under Dir) or chroma (remote server).
	Backend    string `yaml:"backend" env:"VECTOR_BACKEND" env-default:"sqlite"`
	Dir        string `yaml:"dir" env:"CHROMA_DIR" env-default:"./chroma_db"`
	ChromaURL  string `yaml:"chroma_url" env:"CHROMA_URL" env-default:"http://localhost:8000"`
	Collection string `yaml:"collection" env:"VECTOR_COLLECTION" env-default:"metadata_docs"`
	BatchSize  int    `yaml:"batch_size" env:"VECTOR_BATCH_SIZE" env-default:"100"`
}

// Neo4jConfig configures the optional external graph mirror.
type Neo4jConfig struct {
	URI      string `yaml:"uri" env:"NEO4J_URI" env-default:""`
	User     string `yaml:"user" env:"NEO4J_USER" env-default:""`
	Password string `yaml:"-" env:"NEO4J_PASSWORD"`
}

// Enabled is true only when all three settings are present.
func (c *Neo4jConfig) Enabled() bool {
	return c.URI != "" && c.User != "" && c.Password != ""
}

// CacheConfig configures the answer cache.
type CacheConfig struct {
	// Backend is sqlite (on-disk under Dir), redis or memory.
	Backend    string      `yaml:"backend" env:"CACHE_BACKEND" env-default:"sqlite"`
	Dir        string      `yaml:"dir" env:"CACHE_DIR" env-default:"./.cache"`
	TTLSeconds int         `yaml:"ttl_seconds" env:"CACHE_TTL_SECONDS" env-default:"1800"`
	Redis      RedisConfig `yaml:"redis"`
}

// TTL returns the answer cache expiry.
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// RedisConfig holds Redis connection settings for the redis cache backend.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// RetrievalConfig tunes context selection and metadata sampling.
type RetrievalConfig struct {
	TopK            int `yaml:"top_k" env:"TOP_K" env-default:"8"`
	MaxSnippets     int `yaml:"max_snippets" env:"MAX_CONTEXT_SNIPPETS" env-default:"12"`
	MaxStatsColumns int `yaml:"max_stats_columns" env:"MAX_STATS_COLUMNS" env-default:"5"`
}

// DefaultConfigPath is read when present; its absence is not an error.
const DefaultConfigPath = "config.yaml"

// Load reads .env (if present), then config.yaml (if present), then the
// environment. The version is injected at build time.
func Load(version string) (*Config, error) {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = DefaultConfigPath
	}
	return LoadFrom(path, version)
}

// LoadFrom is Load with an explicit YAML path.
func LoadFrom(path, version string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{Version: version}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.applyDerivedDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyDerivedDefaults fills paths that default relative to DataDir.
func (c *Config) applyDerivedDefaults() {
	if c.Storage.SnapshotPath == "" {
		c.Storage.SnapshotPath = filepath.Join(c.Storage.DataDir, "metadata_latest.json")
	}
	if c.Storage.DocsPath == "" {
		c.Storage.DocsPath = filepath.Join(c.Storage.DataDir, "metadata_docs.json")
	}
}

// Validate checks enumerated settings and numeric bounds.
func (c *Config) Validate() error {
	switch c.Warehouse.Type {
	case "snowflake", "postgres", "mssql":
	default:
		return fmt.Errorf("warehouse.type must be snowflake, postgres or mssql, got %q", c.Warehouse.Type)
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("llm.provider must be openai or anthropic, got %q", c.LLM.Provider)
	}
	switch c.Vector.Backend {
	case "sqlite", "chroma":
	default:
		return fmt.Errorf("vector.backend must be sqlite or chroma, got %q", c.Vector.Backend)
	}
	switch c.Cache.Backend {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("cache.backend must be sqlite, redis or memory, got %q", c.Cache.Backend)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Vector.BatchSize <= 0 {
		return fmt.Errorf("vector.batch_size must be positive, got %d", c.Vector.BatchSize)
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache.ttl_seconds must be positive, got %d", c.Cache.TTLSeconds)
	}
	return nil
}
