package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/warehouse"
	"github.com/ekaya-inc/ekaya-insight/pkg/corpus"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/sqlguard"
)

// maxDistinctNote caps the distinct count reported for a column.
const maxDistinctNote = 100

// QueryRunner executes generated SQL behind the read-only guard.
type QueryRunner interface {
	// Run rejects anything but a single SELECT/WITH statement with an error
	// wrapping apperrors.ErrUnsafeQuery, then returns at most
	// warehouse.MaxQueryLimit rows with summary notes.
	Run(ctx context.Context, sqlQuery string) (*models.QueryResult, error)
}

type queryRunner struct {
	opener warehouse.Opener
	logger *zap.Logger
}

func NewQueryRunner(opener warehouse.Opener, logger *zap.Logger) QueryRunner {
	return &queryRunner{
		opener: opener,
		logger: logger.Named("query-runner"),
	}
}

var _ QueryRunner = (*queryRunner)(nil)

func (r *queryRunner) Run(ctx context.Context, sqlQuery string) (*models.QueryResult, error) {
	normalized, err := sqlguard.Check(sqlQuery)
	if err != nil {
		r.logger.Warn("Rejected generated SQL",
			zap.String("sql", logging.SanitizeQuery(sqlQuery)),
			zap.Error(err))
		return nil, err
	}

	wh, err := r.opener.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer wh.Close()

	rs, err := wh.Query(ctx, normalized, warehouse.MaxQueryLimit)
	if err != nil {
		r.logger.Error("Generated SQL failed",
			zap.String("sql", logging.SanitizeQuery(normalized)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, err
	}

	result := &models.QueryResult{
		Columns:   rs.Columns,
		Rows:      rs.Rows,
		RowCount:  len(rs.Rows),
		Truncated: rs.Truncated,
	}
	if result.Columns == nil {
		result.Columns = []string{}
	}
	if result.Rows == nil {
		result.Rows = []models.Row{}
	}
	result.Notes = Summarize(result)
	return result, nil
}

// Summarize produces quick notes about a result: the row count, then per
// column either min/max (temporal or numeric) or an approximate distinct count.
func Summarize(result *models.QueryResult) []string {
	if result == nil || len(result.Rows) == 0 {
		return []string{"No rows returned."}
	}

	notes := []string{"Rows: " + groupThousands(len(result.Rows))}
	for _, col := range result.Columns {
		values := make([]any, 0, len(result.Rows))
		for _, row := range result.Rows {
			if v := row[col]; v != nil {
				values = append(values, v)
			}
		}

		if lo, hi, ok := temporalRange(values); ok {
			notes = append(notes, fmt.Sprintf("%s: min=%s, max=%s", col, lo, hi))
			continue
		}
		if lo, hi, ok := numericRange(values); ok {
			notes = append(notes, fmt.Sprintf("%s: min=%s, max=%s", col, corpus.Format(lo), corpus.Format(hi)))
			continue
		}

		distinct := make(map[string]struct{}, len(values))
		for _, v := range values {
			distinct[fmt.Sprint(v)] = struct{}{}
		}
		notes = append(notes, fmt.Sprintf("%s: distinct≈%d", col, min(len(distinct), maxDistinctNote)))
	}
	return notes
}

var temporalLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", time.DateOnly}

func parseTemporal(s string) (time.Time, bool) {
	for _, layout := range temporalLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// temporalRange reports the earliest and latest values when every value is a
// timestamp or date string.
func temporalRange(values []any) (string, string, bool) {
	if len(values) == 0 {
		return "", "", false
	}
	var lo, hi string
	var loT, hiT time.Time
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			return "", "", false
		}
		t, ok := parseTemporal(s)
		if !ok {
			return "", "", false
		}
		if i == 0 || t.Before(loT) {
			lo, loT = s, t
		}
		if i == 0 || t.After(hiT) {
			hi, hiT = s, t
		}
	}
	return lo, hi, true
}

// numericRange reports min and max when every value is a number.
func numericRange(values []any) (float64, float64, bool) {
	if len(values) == 0 {
		return 0, 0, false
	}
	var lo, hi float64
	for i, v := range values {
		var f float64
		switch n := v.(type) {
		case int64:
			f = float64(n)
		case int:
			f = float64(n)
		case float64:
			f = n
		case float32:
			f = float64(n)
		default:
			return 0, 0, false
		}
		if i == 0 || f < lo {
			lo = f
		}
		if i == 0 || f > hi {
			hi = f
		}
	}
	return lo, hi, true
}

func groupThousands(n int) string {
	if n < 0 {
		return "-" + groupThousands(-n)
	}
	s := strconv.Itoa(n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
