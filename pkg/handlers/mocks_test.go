package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/warehouse"
	"github.com/ekaya-inc/ekaya-insight/pkg/llm"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/services"
)

type fakeSynthesizer struct {
	synthesis *services.Synthesis
	err       error
	questions []string
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, question string) (*services.Synthesis, error) {
	f.questions = append(f.questions, question)
	return f.synthesis, f.err
}

type fakeRunner struct {
	result  *models.QueryResult
	err     error
	queries []string
}

func (f *fakeRunner) Run(_ context.Context, sql string) (*models.QueryResult, error) {
	f.queries = append(f.queries, sql)
	return f.result, f.err
}

type fakeRefresh struct {
	report *models.RefreshReport
	err    error
}

func (f *fakeRefresh) Refresh(context.Context) (*models.RefreshReport, error) {
	return f.report, f.err
}

type fakeTester struct {
	result *llm.TestResult
}

func (f *fakeTester) Test(context.Context) *llm.TestResult { return f.result }

type fakeWarehouse struct {
	info    []models.Row
	testErr error
	closed  bool
}

func (f *fakeWarehouse) Query(context.Context, string, int) (*warehouse.ResultSet, error) {
	return &warehouse.ResultSet{}, nil
}

func (f *fakeWarehouse) TestConnection(context.Context) ([]models.Row, error) {
	return f.info, f.testErr
}

func (f *fakeWarehouse) Dialect() *warehouse.Dialect { return &warehouse.Dialect{Name: "fake"} }
func (f *fakeWarehouse) DatabaseScoped() bool        { return true }

func (f *fakeWarehouse) Close() error {
	f.closed = true
	return nil
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

// serve dispatches one request through a mux holding the given routes.
func serve(t *testing.T, register func(*http.ServeMux), method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	register(mux)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

// decodeData unmarshals the Data field of an ApiResponse into v.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) ApiResponse {
	t.Helper()
	var envelope struct {
		ApiResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	if v != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, v))
	}
	return envelope.ApiResponse
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}
