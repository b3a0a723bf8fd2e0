package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/corpus"
	"github.com/ekaya-inc/ekaya-insight/pkg/graph"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/vectorindex"
)

// Refresh stage names as they appear in reports.
const (
	StageExtract      = "extract"
	StageGraphBuild   = "graph_build"
	StageGraphSave    = "graph_save"
	StageGraphMirror  = "graph_mirror"
	StageCorpusSave   = "corpus_save"
	StageVectorUpsert = "vector_upsert"
)

// RefreshService rebuilds every derived artifact from a fresh snapshot.
type RefreshService interface {
	// Refresh extracts metadata, then rebuilds the graph, the document corpus
	// and the vector index. Only extraction can fail the call; later stages
	// are reported as degraded or failed in the returned report.
	Refresh(ctx context.Context) (*models.RefreshReport, error)
}

type refreshService struct {
	extractor MetadataExtractor
	graphs    *graph.Store
	mirror    graph.Mirror
	index     vectorindex.Index
	docsPath  string
	logger    *zap.Logger

	// Snapshot and corpus files are overwritten in place, so refreshes in
	// this process run one at a time.
	mu sync.Mutex
}

func NewRefreshService(extractor MetadataExtractor, graphs *graph.Store, mirror graph.Mirror, index vectorindex.Index, docsPath string, logger *zap.Logger) RefreshService {
	if mirror == nil {
		mirror = graph.NoopMirror{}
	}
	return &refreshService{
		extractor: extractor,
		graphs:    graphs,
		mirror:    mirror,
		index:     index,
		docsPath:  docsPath,
		logger:    logger.Named("refresh"),
	}
}

var _ RefreshService = (*refreshService)(nil)

func (s *refreshService) Refresh(ctx context.Context) (*models.RefreshReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now().UTC()
	extracted, err := s.extractor.Extract(ctx)
	if err != nil {
		s.logger.Error("Metadata refresh failed", zap.Error(err))
		return nil, err
	}
	snapshot := extracted.Snapshot

	report := &models.RefreshReport{
		RefreshID: snapshot.RefreshID,
		StartedAt: started.Format(time.RFC3339),
		Counts:    snapshot.Counts(),
		Stages:    []models.StageReport{extracted.Stage().Report(StageExtract)},
	}

	g := graph.Build(snapshot.Tables, snapshot.Columns)
	report.GraphNodes, report.GraphEdges = g.NodeCount(), g.EdgeCount()
	report.Stages = append(report.Stages, models.OK(g).Report(StageGraphBuild))

	if err := s.graphs.Replace(g); err != nil {
		s.logger.Error("Failed to save graph", zap.String("path", s.graphs.Path()), zap.Error(err))
		report.Stages = append(report.Stages, models.Failed(g, err).Report(StageGraphSave))
	} else {
		report.Stages = append(report.Stages, models.OK(g).Report(StageGraphSave))
	}

	if err := s.mirror.Mirror(ctx, g); err != nil {
		s.logger.Warn("Graph mirror failed", zap.Error(err))
		report.Stages = append(report.Stages, models.Failed(g, err).Report(StageGraphMirror))
	} else {
		report.Stages = append(report.Stages, models.OK(g).Report(StageGraphMirror))
	}

	docs := corpus.Build(snapshot)
	report.Documents = len(docs)
	if err := corpus.Save(docs, s.docsPath); err != nil {
		s.logger.Error("Failed to save document corpus", zap.String("path", s.docsPath), zap.Error(err))
		report.Stages = append(report.Stages, models.Failed(docs, err).Report(StageCorpusSave))
	} else {
		report.Stages = append(report.Stages, models.OK(docs).Report(StageCorpusSave))
	}

	report.Stages = append(report.Stages, s.upsert(ctx, docs, report).Report(StageVectorUpsert))

	report.FinishedAt = time.Now().UTC().Format(time.RFC3339)
	s.logger.Info("Metadata refresh complete",
		zap.String("refresh_id", report.RefreshID),
		zap.String("corpus", corpus.Summary(docs)),
		zap.Int("graph_nodes", report.GraphNodes),
		zap.Int("indexed", report.IndexedCount),
		zap.Bool("degraded", report.Degraded()))
	return report, nil
}

func (s *refreshService) upsert(ctx context.Context, docs []models.Document, report *models.RefreshReport) models.StageResult[int] {
	if !s.index.Available() {
		return models.Degraded(0, "vector retrieval unavailable: no embedding credential configured")
	}
	n, err := s.index.Upsert(ctx, docs)
	report.IndexedCount = n
	if err != nil {
		s.logger.Error("Vector upsert failed", zap.Int("written", n), zap.Error(err))
		return models.Failed(n, err)
	}
	return models.OK(n)
}
