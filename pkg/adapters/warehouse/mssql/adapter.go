package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/warehouse"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/retry"
)

// buildConnectionURL renders a sqlserver:// URL using SQL authentication.
func buildConnectionURL(cfg *config.MSSQLConfig) string {
	query := url.Values{}
	if cfg.Database != "" {
		query.Add("database", cfg.Database)
	}
	query.Add("encrypt", "disable")
	query.Add("app name", "ekaya-insight")

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     config.ResolveHostForDocker(cfg.Host) + ":" + strconv.Itoa(cfg.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}

func Connect(ctx context.Context, cfg *config.WarehouseConfig, logger *zap.Logger) (warehouse.Warehouse, error) {
	dialect, err := warehouse.LoadDialect("mssql", cfg.BatteryFile)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlserver", buildConnectionURL(&cfg.MSSQL))
	if err != nil {
		return nil, fmt.Errorf("failed to open sql server connection: %s", logging.SanitizeError(err))
	}

	err = retry.DoIfRetryable(ctx, retry.WarehouseConfig(), func() error {
		return db.PingContext(ctx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sql server connection test failed: %s", logging.SanitizeError(err))
	}

	logger.Info("Connected to SQL Server",
		zap.String("host", cfg.MSSQL.Host),
		zap.String("database", cfg.MSSQL.Database))
	return warehouse.NewSQLWarehouse(db, dialect, cfg.MSSQL.Database != "", cfg.QueryTimeout(), logger), nil
}
