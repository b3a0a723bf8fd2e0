package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/corpus"
	"github.com/ekaya-inc/ekaya-insight/pkg/graph"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/storage"
)

type refreshFixture struct {
	service  RefreshService
	graphs   *graph.Store
	mirror   *recordingMirror
	index    *fakeIndex
	docsPath string
}

func newRefreshFixture(t *testing.T, opener *fakeOpener, index *fakeIndex, mirror *recordingMirror) *refreshFixture {
	t.Helper()
	dir := t.TempDir()
	store := storage.NewSnapshotStore(filepath.Join(dir, "metadata_latest.json"))
	extractor := NewMetadataExtractor(opener, store, MetadataExtractorConfig{Retry: fastRetry()}, zap.NewNop())
	graphs := graph.NewStore(filepath.Join(dir, "graphdb.json"), zap.NewNop())
	docsPath := filepath.Join(dir, "metadata_docs.json")
	return &refreshFixture{
		service:  NewRefreshService(extractor, graphs, mirror, index, docsPath, zap.NewNop()),
		graphs:   graphs,
		mirror:   mirror,
		index:    index,
		docsPath: docsPath,
	}
}

func TestRefreshService_Refresh(t *testing.T) {
	wh := &fakeWarehouse{dialect: testDialect(), scoped: true, respond: metadataResponder(ordersColumns(2))}
	f := newRefreshFixture(t, &fakeOpener{wh: wh}, &fakeIndex{}, &recordingMirror{})

	report, err := f.service.Refresh(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RefreshID)
	assert.Equal(t, 1, report.Counts[models.KeyTables])
	assert.Equal(t, 5, report.GraphNodes)
	assert.Equal(t, 4, report.GraphEdges)
	// 1 table + 2 columns + 2 column stats + 1 query
	assert.Equal(t, 6, report.Documents)
	assert.Equal(t, 6, report.IndexedCount)
	assert.False(t, report.Degraded())

	stages := make([]string, 0, len(report.Stages))
	for _, s := range report.Stages {
		stages = append(stages, s.Stage)
	}
	assert.Equal(t, []string{StageExtract, StageGraphBuild, StageGraphSave, StageGraphMirror, StageCorpusSave, StageVectorUpsert}, stages)

	assert.Equal(t, 1, f.mirror.calls)
	assert.Equal(t, 5, f.graphs.Current().NodeCount())

	saved, err := graph.Load(f.graphs.Path())
	require.NoError(t, err)
	assert.Equal(t, 5, saved.NodeCount())

	docs, err := corpus.Load(f.docsPath)
	require.NoError(t, err)
	assert.Len(t, docs, 6)
	assert.Equal(t, "table::DB.PUBLIC.ORDERS", docs[0].ID)
}

func TestRefreshService_DegradedStagesDoNotFail(t *testing.T) {
	wh := &fakeWarehouse{dialect: testDialect(), scoped: true, respond: metadataResponder(ordersColumns(1))}
	f := newRefreshFixture(t, &fakeOpener{wh: wh}, &fakeIndex{upsertErr: errors.New("embedding failed: 503")}, &recordingMirror{err: errors.New("neo4j unreachable")})

	report, err := f.service.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Degraded())

	byStage := map[string]models.StageReport{}
	for _, s := range report.Stages {
		byStage[s.Stage] = s
	}
	assert.Equal(t, models.StageFailed, byStage[StageGraphMirror].Status)
	assert.Equal(t, models.StageFailed, byStage[StageVectorUpsert].Status)
	assert.Equal(t, models.StageOK, byStage[StageCorpusSave].Status)
	assert.Equal(t, 0, report.IndexedCount)
}

func TestRefreshService_VectorUnavailable(t *testing.T) {
	wh := &fakeWarehouse{dialect: testDialect(), scoped: true, respond: metadataResponder(ordersColumns(1))}
	f := newRefreshFixture(t, &fakeOpener{wh: wh}, &fakeIndex{unavailable: true}, &recordingMirror{})

	report, err := f.service.Refresh(context.Background())
	require.NoError(t, err)

	last := report.Stages[len(report.Stages)-1]
	assert.Equal(t, StageVectorUpsert, last.Stage)
	assert.Equal(t, models.StageDegraded, last.Status)
	assert.Contains(t, last.Reason, "vector retrieval unavailable")
}

func TestRefreshService_IdempotentUpsertIds(t *testing.T) {
	wh := &fakeWarehouse{dialect: testDialect(), scoped: true, respond: metadataResponder(ordersColumns(1))}
	f := newRefreshFixture(t, &fakeOpener{wh: wh}, &fakeIndex{}, &recordingMirror{})

	_, err := f.service.Refresh(context.Background())
	require.NoError(t, err)
	_, err = f.service.Refresh(context.Background())
	require.NoError(t, err)

	ids := map[string]int{}
	for _, d := range f.index.upserted {
		ids[d.ID]++
	}
	for id, n := range ids {
		assert.Equal(t, 2, n, id)
	}
}

func TestRefreshService_ExtractionFailure(t *testing.T) {
	f := newRefreshFixture(t, &fakeOpener{err: errors.New("dial tcp: connection refused")}, &fakeIndex{}, &recordingMirror{})

	_, err := f.service.Refresh(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNoWarehouseConnection)
	assert.Equal(t, 0, f.mirror.calls)
	assert.Empty(t, f.index.upserted)
}
