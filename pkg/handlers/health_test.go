package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/graph"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/storage"
	"github.com/ekaya-inc/ekaya-insight/pkg/vectorindex"
)

func ping(t *testing.T, handler *HealthHandler) PingResponse {
	t.Helper()
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var response PingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	return response
}

func TestHealthHandler_Health(t *testing.T) {
	handler := NewHealthHandler(&config.Config{Version: "test-version"}, nil, nil, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHealthHandler_Ping(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Version: "1.2.3", Env: "test"}
	cfg.Warehouse.Type = "snowflake"

	snapshots := storage.NewSnapshotStore(filepath.Join(dir, "metadata_latest.json"))
	extractedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, snapshots.Save(models.NewMetadataSnapshot("r-9", extractedAt)))

	graphs := graph.NewStore(filepath.Join(dir, "graphdb.json"), zap.NewNop())
	require.NoError(t, graphs.Replace(graph.Build(
		[]models.Row{{"database_name": "DB", "schema_name": "PUBLIC", "table_name": "ORDERS"}}, nil)))

	handler := NewHealthHandler(cfg, snapshots, graphs, vectorindex.NewUnavailable("no key"), zap.NewNop())
	handler.now = func() time.Time { return extractedAt.Add(90 * time.Second) }

	response := ping(t, handler)
	assert.Equal(t, PingStatusOK, response.Status)
	assert.Equal(t, "1.2.3", response.Version)
	assert.Equal(t, "ekaya-insight", response.Service)
	assert.Equal(t, runtime.Version(), response.GoVersion)
	assert.Equal(t, "test", response.Environment)
	assert.Equal(t, "snowflake", response.Warehouse)

	assert.Equal(t, "r-9", response.Metadata.RefreshID)
	assert.Equal(t, "2026-03-01T12:00:00Z", response.Metadata.ExtractedAt)
	require.NotNil(t, response.Metadata.AgeSeconds)
	assert.InDelta(t, 90, *response.Metadata.AgeSeconds, 0.001)
	assert.Equal(t, 3, response.Metadata.GraphNodes)
	assert.False(t, response.Metadata.VectorRetrieval)
}

func TestHealthHandler_Ping_NoSnapshotYet(t *testing.T) {
	snapshots := storage.NewSnapshotStore(filepath.Join(t.TempDir(), "metadata_latest.json"))
	handler := NewHealthHandler(&config.Config{Version: "1"}, snapshots, nil, nil, zap.NewNop())

	response := ping(t, handler)
	assert.Equal(t, PingStatusNoMetadata, response.Status)
	assert.Nil(t, response.Metadata.AgeSeconds)
	assert.Empty(t, response.Metadata.RefreshID)
}

func TestHealthHandler_Ping_UnreadableSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata_latest.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	handler := NewHealthHandler(&config.Config{Version: "1"}, storage.NewSnapshotStore(path), nil, nil, zap.NewNop())

	response := ping(t, handler)
	assert.Equal(t, PingStatusDegraded, response.Status)
}
