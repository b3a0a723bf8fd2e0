package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/warehouse"
	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/retry"
	"github.com/ekaya-inc/ekaya-insight/pkg/storage"
)

// DefaultMaxStatsColumns bounds how many columns per table get sampled.
const DefaultMaxStatsColumns = 5

// ExtractResult is one completed extraction. FailedQueries lists battery keys
// whose query exhausted its retries and were stored empty.
type ExtractResult struct {
	Snapshot      *models.MetadataSnapshot
	FailedQueries []string
	StatsSampled  int
	StatsFailed   int
}

// Stage summarizes the extraction for a refresh report.
func (r *ExtractResult) Stage() models.StageResult[*models.MetadataSnapshot] {
	if len(r.FailedQueries) == 0 && r.StatsFailed == 0 {
		return models.OK(r.Snapshot)
	}
	return models.Degraded(r.Snapshot, fmt.Sprintf("failed queries: %v; failed column stats: %d of %d",
		r.FailedQueries, r.StatsFailed, r.StatsSampled))
}

// MetadataExtractor captures warehouse metadata into a snapshot.
type MetadataExtractor interface {
	// Extract runs the introspection battery and the column statistics
	// phase. It fails only when no warehouse session can be opened or every
	// primary query fails; in both cases the previous snapshot is untouched.
	Extract(ctx context.Context) (*ExtractResult, error)
}

// MetadataExtractorConfig tunes extraction.
type MetadataExtractorConfig struct {
	MaxStatsColumns int
	// Retry applies to each statement; nil uses retry.WarehouseConfig.
	Retry *retry.Config
}

type metadataExtractor struct {
	opener warehouse.Opener
	store  storage.SnapshotStore
	cfg    MetadataExtractorConfig
	now    func() time.Time
	logger *zap.Logger
}

func NewMetadataExtractor(opener warehouse.Opener, store storage.SnapshotStore, cfg MetadataExtractorConfig, logger *zap.Logger) MetadataExtractor {
	if cfg.MaxStatsColumns <= 0 {
		cfg.MaxStatsColumns = DefaultMaxStatsColumns
	}
	if cfg.Retry == nil {
		cfg.Retry = retry.WarehouseConfig()
	}
	return &metadataExtractor{
		opener: opener,
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.Named("metadata-extractor"),
	}
}

var _ MetadataExtractor = (*metadataExtractor)(nil)

func (e *metadataExtractor) Extract(ctx context.Context) (*ExtractResult, error) {
	wh, err := e.opener.Open(ctx)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNoWarehouseConnection) {
			err = fmt.Errorf("%w: %w", apperrors.ErrNoWarehouseConnection, err)
		}
		return nil, err
	}
	defer func() {
		if cerr := wh.Close(); cerr != nil {
			e.logger.Warn("Failed to close warehouse session", zap.Error(cerr))
		}
	}()

	refreshID := uuid.New().String()
	snapshot := models.NewMetadataSnapshot(refreshID, e.now())
	result := &ExtractResult{Snapshot: snapshot, FailedQueries: []string{}}

	battery := wh.Dialect().Battery(wh.DatabaseScoped())
	e.logger.Info("Extracting warehouse metadata",
		zap.String("refresh_id", refreshID),
		zap.String("dialect", wh.Dialect().Name),
		zap.Bool("database_scoped", wh.DatabaseScoped()),
		zap.Int("queries", len(battery)))

	primaryRun, primaryFailed := 0, 0
	for _, q := range battery {
		rows, err := e.run(ctx, wh, q.SQL)
		if err != nil {
			e.logger.Error("Metadata query failed",
				zap.String("key", q.Key),
				zap.String("error", logging.SanitizeError(err)))
			result.FailedQueries = append(result.FailedQueries, q.Key)
			rows = []models.Row{}
		}
		snapshot.Set(q.Key, rows)
		if slices.Contains(models.PrimaryKeys, q.Key) {
			primaryRun++
			if err != nil {
				primaryFailed++
			}
		}
	}

	if primaryRun > 0 && primaryFailed == primaryRun {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPrimaryMetadataFailed, result.FailedQueries)
	}

	// Early write so a crash during sampling keeps the primary metadata.
	if err := e.store.Save(snapshot); err != nil {
		e.logger.Error("Failed to write early snapshot", zap.String("path", e.store.Path()), zap.Error(err))
	}

	snapshot.ColumnStats, result.StatsSampled, result.StatsFailed = e.sampleColumns(ctx, wh, snapshot.Columns)

	if err := e.store.Save(snapshot); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	e.logger.Info("Metadata extraction complete",
		zap.String("refresh_id", refreshID),
		zap.Any("counts", snapshot.Counts()),
		zap.Strings("failed_queries", result.FailedQueries),
		zap.Int("stats_failed", result.StatsFailed))
	return result, nil
}

func (e *metadataExtractor) run(ctx context.Context, wh warehouse.Warehouse, query string) ([]models.Row, error) {
	rs, err := retry.DoIfRetryableWithResult(ctx, e.cfg.Retry, func() (*warehouse.ResultSet, error) {
		return wh.Query(ctx, query, 0)
	})
	if err != nil {
		return nil, err
	}
	return rs.Rows, nil
}

type tableKey struct {
	database, schema, table string
}

// sampleColumns issues one statistics query per sampled column. Columns are
// grouped by table in first-seen order and only the first MaxStatsColumns of
// each table are sampled. A failed query keeps the row's identity and type.
func (e *metadataExtractor) sampleColumns(ctx context.Context, wh warehouse.Warehouse, columns []models.Row) ([]models.Row, int, int) {
	var order []tableKey
	grouped := make(map[tableKey][]models.Row)
	for _, c := range columns {
		key := tableKey{c.String("database_name"), c.String("schema_name"), c.String("table_name")}
		if key.table == "" || c.String("column_name") == "" {
			continue
		}
		if _, ok := grouped[key]; !ok {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], c)
	}

	dialect := wh.Dialect()
	stats := []models.Row{}
	sampled, failed := 0, 0
	for _, key := range order {
		cols := grouped[key]
		if len(cols) > e.cfg.MaxStatsColumns {
			cols = cols[:e.cfg.MaxStatsColumns]
		}
		for _, c := range cols {
			column, dataType := c.String("column_name"), c.String("data_type")
			row := models.Row{
				"database_name": c["database_name"],
				"schema_name":   c["schema_name"],
				"table_name":    c["table_name"],
				"column_name":   c["column_name"],
				"data_type":     c["data_type"],
			}
			sampled++

			query := dialect.StatsQuery(key.database, key.schema, key.table, column, dataType)
			rows, err := e.run(ctx, wh, query)
			switch {
			case err != nil:
				failed++
				e.logger.Warn("Column statistics failed",
					zap.String("table", key.table),
					zap.String("column", column),
					zap.String("error", logging.SanitizeError(err)))
			case len(rows) > 0:
				for k, v := range rows[0] {
					row[k] = v
				}
			}
			stats = append(stats, row)
		}
	}
	return stats, sampled, failed
}
