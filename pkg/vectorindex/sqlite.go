package vectorindex

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/ekaya-inc/ekaya-insight/pkg/llm"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	text TEXT NOT NULL,
	metadata TEXT,
	embedding BLOB NOT NULL,
	PRIMARY KEY (collection, id)
);
`

// SQLiteIndex keeps vectors in an embedded SQLite file and ranks candidates
// in process. Collections of a few thousand documents scan quickly.
type SQLiteIndex struct {
	db         *sql.DB
	collection string
	embedder   llm.EmbeddingClient
	batchSize  int
	logger     *zap.Logger
}

var _ Index = (*SQLiteIndex)(nil)

func NewSQLiteIndex(path, collection string, embedder llm.EmbeddingClient, batchSize int, logger *zap.Logger) (*SQLiteIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize index schema: %w", err)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &SQLiteIndex{
		db:         db,
		collection: collection,
		embedder:   embedder,
		batchSize:  batchSize,
		logger:     logger.Named("vectorindex"),
	}, nil
}

func (s *SQLiteIndex) Upsert(ctx context.Context, docs []models.Document) (int, error) {
	written := 0
	for _, batch := range batches(docs, s.batchSize) {
		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Text
		}
		vectors, err := s.embedder.CreateEmbeddings(ctx, texts)
		if err != nil {
			return written, fmt.Errorf("embedding batch failed: %w", err)
		}
		if len(vectors) != len(batch) {
			return written, fmt.Errorf("embedding batch returned %d vectors for %d documents", len(vectors), len(batch))
		}
		if err := s.writeBatch(ctx, batch, vectors); err != nil {
			return written, err
		}
		written += len(batch)
		s.logger.Debug("Upserted batch", zap.Int("size", len(batch)), zap.Int("total", written))
	}
	return written, nil
}

func (s *SQLiteIndex) writeBatch(ctx context.Context, batch []models.Document, vectors [][]float32) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (collection, id, text, metadata, embedding) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			text = excluded.text, metadata = excluded.metadata, embedding = excluded.embedding`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, d := range batch {
		meta, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s: %w", d.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, s.collection, d.ID, d.Text, string(meta), encodeVector(vectors[i])); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

type scored struct {
	text  string
	score float64
}

func (s *SQLiteIndex) Query(ctx context.Context, text string, topK int) ([]string, error) {
	if topK <= 0 {
		return []string{}, nil
	}
	vectors, err := s.embedder.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return []string{}, fmt.Errorf("embedding query failed: %w", err)
	}
	if len(vectors) != 1 {
		return []string{}, fmt.Errorf("embedding query returned %d vectors", len(vectors))
	}
	query := vectors[0]

	rows, err := s.db.QueryContext(ctx,
		"SELECT text, embedding FROM documents WHERE collection = ? ORDER BY rowid", s.collection)
	if err != nil {
		return []string{}, fmt.Errorf("index scan failed: %w", err)
	}
	defer rows.Close()

	var candidates []scored
	for rows.Next() {
		var (
			docText string
			blob    []byte
		)
		if err := rows.Scan(&docText, &blob); err != nil {
			return []string{}, fmt.Errorf("index scan failed: %w", err)
		}
		candidates = append(candidates, scored{text: docText, score: CosineSimilarity(query, decodeVector(blob))})
	}
	if err := rows.Err(); err != nil {
		return []string{}, fmt.Errorf("index scan failed: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	out := make([]string, 0, min(topK, len(candidates)))
	for i := 0; i < len(candidates) && i < topK; i++ {
		out = append(out, candidates[i].text)
	}
	return out, nil
}

func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE collection = ?", s.collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return n, nil
}

func (s *SQLiteIndex) Available() bool { return true }

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// CosineSimilarity returns 0 for mismatched or zero-length vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Vectors are stored as little-endian float32.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
