package snowflake

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/warehouse"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/retry"
)

const applicationName = "ekaya-insight"

// BuildDSN renders the gosnowflake DSN. Role, warehouse, database and schema
// are carried as DSN parameters and re-applied with USE statements after
// connecting so that the session context is explicit.
func BuildDSN(cfg *config.SnowflakeConfig) (string, error) {
	if cfg.Account == "" || cfg.User == "" {
		return "", errors.New("snowflake account and user are required")
	}
	dsn, err := gosnowflake.DSN(&gosnowflake.Config{
		Account:     cfg.Account,
		User:        cfg.User,
		Password:    cfg.Password,
		Warehouse:   cfg.Warehouse,
		Database:    cfg.Database,
		Schema:      cfg.Schema,
		Role:        cfg.Role,
		Application: applicationName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build snowflake DSN: %w", err)
	}
	return dsn, nil
}

// bareIdent matches names Snowflake resolves case-insensitively when unquoted.
var bareIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// sessionIdent leaves plain names unquoted so they resolve the same way the
// DSN login parameters do; anything else is quoted verbatim.
func sessionIdent(name string) string {
	if bareIdent.MatchString(name) {
		return name
	}
	d := &warehouse.Dialect{IdentQuote: `"`}
	return d.QuoteIdent(name)
}

// SessionStatements returns the USE statements for every configured context
// value, in role, warehouse, database, schema order.
func SessionStatements(cfg *config.SnowflakeConfig) []string {
	var stmts []string
	if cfg.Role != "" {
		stmts = append(stmts, "USE ROLE "+sessionIdent(cfg.Role))
	}
	if cfg.Warehouse != "" {
		stmts = append(stmts, "USE WAREHOUSE "+sessionIdent(cfg.Warehouse))
	}
	if cfg.Database != "" {
		stmts = append(stmts, "USE DATABASE "+sessionIdent(cfg.Database))
	}
	if cfg.Database != "" && cfg.Schema != "" {
		stmts = append(stmts, "USE SCHEMA "+sessionIdent(cfg.Schema))
	}
	return stmts
}

// Connect opens a single-connection session so USE statements stick.
func Connect(ctx context.Context, cfg *config.WarehouseConfig, logger *zap.Logger) (warehouse.Warehouse, error) {
	dialect, err := warehouse.LoadDialect("snowflake", cfg.BatteryFile)
	if err != nil {
		return nil, err
	}

	dsn, err := BuildDSN(&cfg.Snowflake)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open snowflake connection: %s", logging.SanitizeError(err))
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	err = retry.DoIfRetryable(ctx, retry.WarehouseConfig(), func() error {
		return db.PingContext(ctx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("snowflake connection test failed: %s", logging.SanitizeError(err))
	}

	wh := warehouse.NewSQLWarehouse(db, dialect, cfg.Snowflake.Database != "", cfg.QueryTimeout(), logger)
	if err := wh.ApplySession(ctx, SessionStatements(&cfg.Snowflake)); err != nil {
		wh.Close()
		return nil, err
	}

	logger.Info("Connected to Snowflake",
		zap.String("account", cfg.Snowflake.Account),
		zap.String("warehouse", cfg.Snowflake.Warehouse),
		zap.String("database", cfg.Snowflake.Database),
		zap.Bool("database_scoped", wh.DatabaseScoped()))
	return wh, nil
}
