package vectorindex

import (
	"context"
	"fmt"
	"sort"

	chromav2 "github.com/amikos-tech/chroma-go/pkg/api/v2"
	chromaopenai "github.com/amikos-tech/chroma-go/pkg/embeddings/openai"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/corpus"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// ChromaConfig configures a remote Chroma collection.
type ChromaConfig struct {
	URL            string
	Collection     string
	APIKey         string
	EmbeddingModel string
	BatchSize      int
}

// ChromaIndex stores documents in a Chroma server collection using cosine
// space. Chroma computes embeddings with its OpenAI embedding function.
type ChromaIndex struct {
	client     chromav2.Client
	collection chromav2.Collection
	batchSize  int
	logger     *zap.Logger
}

var _ Index = (*ChromaIndex)(nil)

func NewChromaIndex(ctx context.Context, cfg *ChromaConfig, logger *zap.Logger) (*ChromaIndex, error) {
	client, err := chromav2.NewHTTPClient(chromav2.WithBaseURL(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}

	ef, err := chromaopenai.NewOpenAIEmbeddingFunction(cfg.APIKey,
		chromaopenai.WithModel(chromaopenai.EmbeddingModel(cfg.EmbeddingModel)))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create embedding function: %w", err)
	}

	col, err := client.GetOrCreateCollection(ctx, cfg.Collection,
		chromav2.WithCollectionMetadataCreate(chromav2.NewMetadataFromMap(map[string]interface{}{"hnsw:space": "cosine"})),
		chromav2.WithEmbeddingFunctionCreate(ef),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to open chroma collection %s: %w", cfg.Collection, err)
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &ChromaIndex{client: client, collection: col, batchSize: batch, logger: logger.Named("chroma")}, nil
}

func (c *ChromaIndex) Upsert(ctx context.Context, docs []models.Document) (int, error) {
	written := 0
	for _, batch := range batches(docs, c.batchSize) {
		ids := make([]chromav2.DocumentID, len(batch))
		texts := make([]string, len(batch))
		metas := make([]chromav2.DocumentMetadata, len(batch))
		for i, d := range batch {
			ids[i] = chromav2.DocumentID(d.ID)
			texts[i] = d.Text
			metas[i] = chromaMetadata(d.Metadata)
		}
		err := c.collection.Upsert(ctx,
			chromav2.WithIDs(ids...),
			chromav2.WithTexts(texts...),
			chromav2.WithMetadatas(metas...),
		)
		if err != nil {
			return written, fmt.Errorf("chroma upsert failed: %w", err)
		}
		written += len(batch)
	}
	c.logger.Debug("Upserted documents", zap.Int("count", written))
	return written, nil
}

// chromaMetadata flattens a row to string attributes; Chroma rejects nulls.
func chromaMetadata(row models.Row) chromav2.DocumentMetadata {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]*chromav2.MetaAttribute, 0, len(keys))
	for _, k := range keys {
		if row[k] == nil {
			continue
		}
		attrs = append(attrs, chromav2.NewStringAttribute(k, corpus.Format(row[k])))
	}
	return chromav2.NewDocumentMetadata(attrs...)
}

func (c *ChromaIndex) Query(ctx context.Context, text string, topK int) ([]string, error) {
	if topK <= 0 {
		return []string{}, nil
	}
	res, err := c.collection.Query(ctx,
		chromav2.WithQueryTexts(text),
		chromav2.WithNResults(topK),
	)
	if err != nil {
		return []string{}, fmt.Errorf("chroma query failed: %w", err)
	}

	out := []string{}
	groups := res.GetDocumentsGroups()
	if len(groups) == 0 {
		return out, nil
	}
	for _, doc := range groups[0] {
		out = append(out, doc.ContentString())
	}
	return out, nil
}

func (c *ChromaIndex) Count(ctx context.Context) (int, error) {
	return c.collection.Count(ctx)
}

func (c *ChromaIndex) Available() bool { return true }

func (c *ChromaIndex) Close() error {
	return c.client.Close()
}
