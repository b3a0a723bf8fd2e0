package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/graph"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

func TestContextSelector_UsesVectorHitsWhenEnough(t *testing.T) {
	index := &fakeIndex{hits: []string{"a", "b", "c", "d"}}
	selector := NewContextSelector(index, salesGraphStore(t), 8, zap.NewNop())

	result := selector.Select(context.Background(), "orders by month")

	assert.Equal(t, models.StageOK, result.Status)
	assert.Equal(t, []string{"a", "b", "c", "d"}, result.Value)
	assert.Equal(t, []string{"orders by month"}, index.queries)
}

func TestContextSelector_ExactlyThreeHitsIsEnough(t *testing.T) {
	index := &fakeIndex{hits: []string{"a", "b", "c"}}
	selector := NewContextSelector(index, salesGraphStore(t), 8, zap.NewNop())

	result := selector.Select(context.Background(), "orders")
	assert.Equal(t, []string{"a", "b", "c"}, result.Value)
	assert.True(t, result.IsOK())
}

func TestContextSelector_FallsBackToGraph(t *testing.T) {
	index := &fakeIndex{hits: []string{"only one"}}
	selector := NewContextSelector(index, salesGraphStore(t), 8, zap.NewNop())

	result := selector.Select(context.Background(), "orders")

	assert.Equal(t, models.StageDegraded, result.Status)
	assert.Equal(t, []string{
		`Graph match: DB.PUBLIC.ORDERS props={"label":"Table","name":"ORDERS","row_count":10}`,
		`Graph match: DB.PUBLIC.ORDERS.ORDER_ID props={"data_type":"NUMBER","label":"Column","name":"ORDER_ID"}`,
	}, result.Value)
}

func TestContextSelector_GraphFallbackHonorsTopK(t *testing.T) {
	selector := NewContextSelector(&fakeIndex{}, salesGraphStore(t), 1, zap.NewNop())

	result := selector.Select(context.Background(), "db")
	require.Len(t, result.Value, 1)
	assert.Contains(t, result.Value[0], "Graph match: DB ")
}

func TestContextSelector_RevertsToSparseVectorHits(t *testing.T) {
	index := &fakeIndex{hits: []string{"Column DB.PUBLIC.SALES.REVENUE type=NUMBER", "Table DB.PUBLIC.SALES has row_count=4"}}
	selector := NewContextSelector(index, salesGraphStore(t), 8, zap.NewNop())

	result := selector.Select(context.Background(), "revenue")

	assert.Equal(t, index.hits, result.Value)
	assert.Equal(t, models.StageDegraded, result.Status)
	assert.Contains(t, result.Reason, "graph search found nothing")
}

func TestContextSelector_NothingFound(t *testing.T) {
	emptyGraph := graph.NewStore(filepath.Join(t.TempDir(), "missing.json"), zap.NewNop())
	selector := NewContextSelector(&fakeIndex{}, emptyGraph, 8, zap.NewNop())

	result := selector.Select(context.Background(), "revenue")
	assert.NotNil(t, result.Value)
	assert.Empty(t, result.Value)
}

func TestContextSelector_VectorUnavailableUsesGraph(t *testing.T) {
	selector := NewContextSelector(&fakeIndex{unavailable: true}, salesGraphStore(t), 8, zap.NewNop())

	result := selector.Select(context.Background(), "order_id")
	require.Len(t, result.Value, 1)
	assert.Contains(t, result.Value[0], "DB.PUBLIC.ORDERS.ORDER_ID")
}

func TestContextSelector_VectorErrorIsNotFatal(t *testing.T) {
	index := &fakeIndex{queryErr: errors.New("chroma query failed: 503")}
	emptyGraph := graph.NewStore(filepath.Join(t.TempDir(), "missing.json"), zap.NewNop())
	selector := NewContextSelector(index, emptyGraph, 8, zap.NewNop())

	result := selector.Select(context.Background(), "revenue")
	assert.Empty(t, result.Value)
	assert.Contains(t, result.Reason, "503")
}
