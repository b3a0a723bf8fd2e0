package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// SQLWarehouse implements Warehouse over any database/sql driver. Adapters
// open the *sql.DB and hand it over; SQLWarehouse owns it from then on.
type SQLWarehouse struct {
	db             *sql.DB
	dialect        *Dialect
	databaseScoped bool
	queryTimeout   time.Duration
	logger         *zap.Logger
}

var _ Warehouse = (*SQLWarehouse)(nil)

func NewSQLWarehouse(db *sql.DB, dialect *Dialect, databaseScoped bool, queryTimeout time.Duration, logger *zap.Logger) *SQLWarehouse {
	return &SQLWarehouse{
		db:             db,
		dialect:        dialect,
		databaseScoped: databaseScoped,
		queryTimeout:   queryTimeout,
		logger:         logger.Named(dialect.Name),
	}
}

func (w *SQLWarehouse) Query(ctx context.Context, query string, maxRows int) (*ResultSet, error) {
	if w.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	result, err := ScanRows(rows, maxRows)
	if err != nil {
		return nil, err
	}

	w.logger.Debug("Query complete",
		zap.String("query", logging.SanitizeQuery(query)),
		zap.Int("rows", len(result.Rows)),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (w *SQLWarehouse) TestConnection(ctx context.Context) ([]models.Row, error) {
	if err := w.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	if strings.TrimSpace(w.dialect.ConnectionInfo) == "" {
		return []models.Row{}, nil
	}
	result, err := w.Query(ctx, w.dialect.ConnectionInfo, 0)
	if err != nil {
		return nil, err
	}
	return result.Rows, nil
}

// ApplySession runs session setup statements (USE ROLE and friends) in order.
func (w *SQLWarehouse) ApplySession(ctx context.Context, statements []string) error {
	for _, stmt := range statements {
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("session setup %q failed: %w", stmt, err)
		}
	}
	return nil
}

func (w *SQLWarehouse) Dialect() *Dialect { return w.dialect }

func (w *SQLWarehouse) DatabaseScoped() bool { return w.databaseScoped }

func (w *SQLWarehouse) Close() error {
	return w.db.Close()
}

// ScanRows reads rows into lower-cased, JSON-safe maps. The declared column
// type drives decimal and DATE conversion.
func ScanRows(rows *sql.Rows, maxRows int) (*ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	names := make([]string, len(columns))
	dbTypes := make([]string, len(columns))
	for i, c := range columns {
		names[i] = strings.ToLower(c)
		if i < len(types) && types[i] != nil {
			dbTypes[i] = types[i].DatabaseTypeName()
		}
	}

	result := &ResultSet{Columns: names, Rows: []models.Row{}}
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if maxRows > 0 && len(result.Rows) >= maxRows {
			result.Truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(models.Row, len(columns))
		for i, name := range names {
			row[name] = jsonutil.SafeColumnValue(values[i], dbTypes[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

// NormalizeRow lower-cases keys and converts values to JSON-safe scalars.
// Used for rows that did not come through ScanRows.
func NormalizeRow(raw map[string]any) models.Row {
	row := make(models.Row, len(raw))
	for k, v := range raw {
		row[strings.ToLower(k)] = jsonutil.SafeValue(v)
	}
	return row
}
