package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/warehouse"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/retry"
)

// Adapter wraps the shared SQL warehouse and owns the pgx pool behind it.
type Adapter struct {
	*warehouse.SQLWarehouse
	pool *pgxpool.Pool
}

// buildConnectionString builds a PostgreSQL URL with every user field escaped.
// localhost resolves to host.docker.internal when running in Docker.
func buildConnectionString(cfg *config.PostgresConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		config.ResolveHostForDocker(cfg.Host),
		cfg.Port,
		url.QueryEscape(cfg.Database),
		sslMode,
	)
}

func Connect(ctx context.Context, cfg *config.WarehouseConfig, logger *zap.Logger) (warehouse.Warehouse, error) {
	dialect, err := warehouse.LoadDialect("postgres", cfg.BatteryFile)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, buildConnectionString(&cfg.Postgres))
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %s", logging.SanitizeError(err))
	}

	err = retry.DoIfRetryable(ctx, retry.WarehouseConfig(), func() error {
		return pool.Ping(ctx)
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres connection test failed: %s", logging.SanitizeError(err))
	}

	db := stdlib.OpenDBFromPool(pool)
	logger.Info("Connected to PostgreSQL",
		zap.String("host", cfg.Postgres.Host),
		zap.String("database", cfg.Postgres.Database))

	// A PostgreSQL connection is always bound to one database.
	return &Adapter{
		SQLWarehouse: warehouse.NewSQLWarehouse(db, dialect, true, cfg.QueryTimeout(), logger),
		pool:         pool,
	}, nil
}

func (a *Adapter) Close() error {
	err := a.SQLWarehouse.Close()
	a.pool.Close()
	return err
}
