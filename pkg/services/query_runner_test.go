package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/warehouse"
	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

func TestQueryRunner_Run(t *testing.T) {
	wh := &fakeWarehouse{dialect: testDialect(), respond: func(q string) (*warehouse.ResultSet, error) {
		return &warehouse.ResultSet{
			Columns: []string{"month", "revenue"},
			Rows: []models.Row{
				{"month": "2024-01-01", "revenue": 10.5},
				{"month": "2024-02-01", "revenue": int64(30)},
			},
		}, nil
	}}
	runner := NewQueryRunner(&fakeOpener{wh: wh}, zap.NewNop())

	result, err := runner.Run(context.Background(), "SELECT month, revenue FROM sales;")
	require.NoError(t, err)

	assert.Equal(t, []string{"SELECT month, revenue FROM sales"}, wh.queries)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, []string{
		"Rows: 2",
		"month: min=2024-01-01, max=2024-02-01",
		"revenue: min=10.5, max=30",
	}, result.Notes)
	assert.True(t, wh.closed)
}

func TestQueryRunner_RejectsWrites(t *testing.T) {
	wh := &fakeWarehouse{dialect: testDialect()}
	runner := NewQueryRunner(&fakeOpener{wh: wh}, zap.NewNop())

	_, err := runner.Run(context.Background(), "DROP TABLE sales")
	assert.ErrorIs(t, err, apperrors.ErrUnsafeQuery)
	assert.Empty(t, wh.queries)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, []string{"No rows returned."}, Summarize(&models.QueryResult{Columns: []string{"a"}}))

	rows := make([]models.Row, 0, 1200)
	for i := 0; i < 1200; i++ {
		rows = append(rows, models.Row{"region": []string{"EU", "US", "APAC"}[i%3], "id": int64(i), "note": nil})
	}
	notes := Summarize(&models.QueryResult{Columns: []string{"region", "id", "note"}, Rows: rows})
	assert.Equal(t, []string{
		"Rows: 1,200",
		"region: distinct≈3",
		"id: min=0, max=1199",
		"note: distinct≈0",
	}, notes)
}

func TestSummarize_CapsDistinct(t *testing.T) {
	rows := make([]models.Row, 0, 150)
	for i := 0; i < 150; i++ {
		rows = append(rows, models.Row{"code": string(rune('A'+i%26)) + string(rune('a'+i/26))})
	}
	notes := Summarize(&models.QueryResult{Columns: []string{"code"}, Rows: rows})
	assert.Equal(t, "code: distinct≈100", notes[1])
}

func TestGroupThousands(t *testing.T) {
	assert.Equal(t, "0", groupThousands(0))
	assert.Equal(t, "999", groupThousands(999))
	assert.Equal(t, "1,000", groupThousands(1000))
	assert.Equal(t, "1,234,567", groupThousands(1234567))
	assert.Equal(t, "-1,000", groupThousands(-1000))
}
