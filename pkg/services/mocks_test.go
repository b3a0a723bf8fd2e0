package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/warehouse"
	"github.com/ekaya-inc/ekaya-insight/pkg/graph"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/retry"
	"github.com/ekaya-inc/ekaya-insight/pkg/vectorindex"
)

// testDialect has one-word battery statements so fakes can route on them.
func testDialect() *warehouse.Dialect {
	battery := func(prefix string) []warehouse.NamedQuery {
		keys := []string{models.KeyTables, models.KeyViews, models.KeyColumns, models.KeyForeignKeys, models.KeyIndexes, models.KeyQueryHistory}
		out := make([]warehouse.NamedQuery, len(keys))
		for i, k := range keys {
			out[i] = warehouse.NamedQuery{Key: k, SQL: prefix + k}
		}
		return out
	}
	return &warehouse.Dialect{
		Name:           "test",
		IdentQuote:     `"`,
		ConnectionInfo: "info",
		NumericTypes:   []string{"NUMBER"},
		TemporalTypes:  []string{"DATE", "TIMESTAMP_NTZ"},
		TextTypes:      []string{"TEXT"},
		Database:       battery("db:"),
		Account:        battery("acct:"),
	}
}

// fakeWarehouse answers queries through respond and records every call.
type fakeWarehouse struct {
	dialect *warehouse.Dialect
	scoped  bool
	respond func(query string) (*warehouse.ResultSet, error)

	mu      sync.Mutex
	queries []string
	closed  bool
}

func (f *fakeWarehouse) Query(_ context.Context, query string, _ int) (*warehouse.ResultSet, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.respond == nil {
		return &warehouse.ResultSet{}, nil
	}
	return f.respond(query)
}

func (f *fakeWarehouse) TestConnection(context.Context) ([]models.Row, error) {
	return []models.Row{{"acct": "TEST"}}, nil
}

func (f *fakeWarehouse) Dialect() *warehouse.Dialect { return f.dialect }
func (f *fakeWarehouse) DatabaseScoped() bool        { return f.scoped }

func (f *fakeWarehouse) Close() error {
	f.closed = true
	return nil
}

func (f *fakeWarehouse) queryCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, q := range f.queries {
		if strings.HasPrefix(q, prefix) {
			n++
		}
	}
	return n
}

type fakeOpener struct {
	wh  *fakeWarehouse
	err error
}

func (o *fakeOpener) Open(context.Context) (warehouse.Warehouse, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.wh, nil
}

// fakeIndex is an in-memory vectorindex.Index.
type fakeIndex struct {
	hits        []string
	queryErr    error
	unavailable bool
	upsertErr   error

	upserted []models.Document
	queries  []string
}

var _ vectorindex.Index = (*fakeIndex)(nil)

func (f *fakeIndex) Upsert(ctx context.Context, docs []models.Document) (int, error) {
	if f.unavailable {
		return vectorindex.NewUnavailable("test").Upsert(ctx, docs)
	}
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.upserted = append(f.upserted, docs...)
	return len(docs), nil
}

func (f *fakeIndex) Query(ctx context.Context, text string, topK int) ([]string, error) {
	f.queries = append(f.queries, text)
	if f.unavailable {
		return vectorindex.NewUnavailable("test").Query(ctx, text, topK)
	}
	if f.queryErr != nil {
		return []string{}, f.queryErr
	}
	if len(f.hits) > topK {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

func (f *fakeIndex) Count(context.Context) (int, error) { return len(f.upserted), nil }
func (f *fakeIndex) Available() bool                    { return !f.unavailable }
func (f *fakeIndex) Close() error                       { return nil }

// fakeSelector returns fixed context.
type fakeSelector struct {
	result models.StageResult[[]string]
	calls  int
}

func (f *fakeSelector) Select(context.Context, string) models.StageResult[[]string] {
	f.calls++
	return f.result
}

// recordingMirror counts mirror calls and optionally fails.
type recordingMirror struct {
	err   error
	calls int
}

func (m *recordingMirror) Mirror(context.Context, *graph.Graph) error {
	m.calls++
	return m.err
}

func (m *recordingMirror) Close(context.Context) error { return nil }

func fastRetry() *retry.Config {
	return &retry.Config{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

// salesGraphStore persists a one-table graph and returns a store over it.
func salesGraphStore(t *testing.T) *graph.Store {
	t.Helper()
	store := graph.NewStore(filepath.Join(t.TempDir(), "graphdb.json"), zap.NewNop())
	require.NoError(t, store.Replace(graph.Build(
		[]models.Row{{"database_name": "DB", "schema_name": "PUBLIC", "table_name": "ORDERS", "row_count": int64(10)}},
		[]models.Row{{"database_name": "DB", "schema_name": "PUBLIC", "table_name": "ORDERS", "column_name": "ORDER_ID", "data_type": "NUMBER"}},
	)))
	return store
}

var errObjectMissing = errors.New("SQL compilation error: Object 'ACCOUNT_USAGE.QUERY_HISTORY' does not exist or not authorized")
