package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/graph"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/vectorindex"
)

const (
	// DefaultTopK is the number of snippets requested from each source.
	DefaultTopK = 8
	// minVectorHits is the smallest vector result used without a graph fallback.
	minVectorHits = 3
)

// ContextSelector picks the metadata snippets a question is answered from.
type ContextSelector interface {
	// Select never fails. An empty value means no context was found; the
	// status says whether a fallback was taken and why.
	Select(ctx context.Context, question string) models.StageResult[[]string]
}

type contextSelector struct {
	index  vectorindex.Index
	graphs *graph.Store
	topK   int
	logger *zap.Logger
}

func NewContextSelector(index vectorindex.Index, graphs *graph.Store, topK int, logger *zap.Logger) ContextSelector {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &contextSelector{
		index:  index,
		graphs: graphs,
		topK:   topK,
		logger: logger.Named("context-selector"),
	}
}

var _ ContextSelector = (*contextSelector)(nil)

func (s *contextSelector) Select(ctx context.Context, question string) models.StageResult[[]string] {
	hits, err := s.index.Query(ctx, question, s.topK)
	if err != nil {
		if !vectorindex.IsUnavailable(err) {
			s.logger.Warn("Vector query failed", zap.Error(err))
		}
		hits = []string{}
	}
	if hits == nil {
		hits = []string{}
	}
	if len(hits) >= minVectorHits {
		return models.OK(hits)
	}

	matches := s.graphs.Current().Search(question, s.topK)
	if len(matches) > 0 {
		out := make([]string, 0, len(matches))
		for _, m := range matches {
			out = append(out, formatGraphMatch(m))
		}
		return models.Degraded(out, fmt.Sprintf("vector index returned %d hits; using graph matches", len(hits)))
	}

	reason := fmt.Sprintf("vector index returned %d hits; graph search found nothing", len(hits))
	if err != nil {
		reason = fmt.Sprintf("%s (%v)", reason, err)
	}
	return models.Degraded(hits, reason)
}

// formatGraphMatch renders a node as "Graph match: <id> props=<json>".
func formatGraphMatch(m graph.Match) string {
	props, err := json.Marshal(m.Props)
	if err != nil {
		props = []byte("{}")
	}
	return fmt.Sprintf("Graph match: %s props=%s", m.ID, props)
}
