// Package vectorindex stores embedded metadata documents and answers
// nearest-neighbour queries by cosine distance.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/llm"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// DefaultBatchSize bounds the documents embedded per request.
const DefaultBatchSize = 100

// Index is a named, persistent collection of documents.
type Index interface {
	// Upsert embeds and stores docs in batches. A document whose id already
	// exists is overwritten. Returns the number of documents written.
	Upsert(ctx context.Context, docs []models.Document) (int, error)

	// Query returns up to topK document texts, nearest first.
	Query(ctx context.Context, text string, topK int) ([]string, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Available is false when no embedding credential is configured.
	Available() bool

	Close() error
}

// New opens the backend selected by cfg.Vector.Backend. The sqlite backend
// embeds with embedder; a nil embedder (no embedding credential) yields an
// index that reports itself unavailable.
func New(ctx context.Context, cfg *config.Config, embedder llm.EmbeddingClient, logger *zap.Logger) (Index, error) {
	if embedder == nil || !cfg.LLM.EmbeddingsAvailable() {
		logger.Warn("OPENAI_API_KEY not set; vector retrieval disabled")
		return NewUnavailable("no embedding credential configured"), nil
	}

	batch := cfg.Vector.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	switch cfg.Vector.Backend {
	case "sqlite":
		path := filepath.Join(cfg.Vector.Dir, "index.db")
		return NewSQLiteIndex(path, cfg.Vector.Collection, embedder, batch, logger)
	case "chroma":
		// Chroma embeds through its own OpenAI embedding function.
		return NewChromaIndex(ctx, &ChromaConfig{
			URL:            cfg.Vector.ChromaURL,
			Collection:     cfg.Vector.Collection,
			APIKey:         cfg.LLM.OpenAIAPIKey,
			EmbeddingModel: cfg.LLM.EmbeddingModel,
			BatchSize:      batch,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Vector.Backend)
	}
}

// unavailableIndex stands in when embeddings cannot be computed.
type unavailableIndex struct {
	reason string
}

var _ Index = (*unavailableIndex)(nil)

func NewUnavailable(reason string) Index {
	return &unavailableIndex{reason: reason}
}

func (u *unavailableIndex) err() error {
	return fmt.Errorf("%w: %s", apperrors.ErrVectorIndexUnavailable, u.reason)
}

func (u *unavailableIndex) Upsert(context.Context, []models.Document) (int, error) {
	return 0, u.err()
}

func (u *unavailableIndex) Query(context.Context, string, int) ([]string, error) {
	return []string{}, u.err()
}

func (u *unavailableIndex) Count(context.Context) (int, error) { return 0, u.err() }

func (u *unavailableIndex) Available() bool { return false }

func (u *unavailableIndex) Close() error { return nil }

// IsUnavailable reports whether err means vector retrieval is switched off.
func IsUnavailable(err error) bool {
	return errors.Is(err, apperrors.ErrVectorIndexUnavailable)
}

func batches(docs []models.Document, size int) [][]models.Document {
	var out [][]models.Document
	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))
		out = append(out, docs[start:end])
	}
	return out
}
