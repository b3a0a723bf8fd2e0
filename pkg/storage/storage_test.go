package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

func TestWriteJSON_Indented(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b.json")

	require.NoError(t, WriteJSON(path, map[string]int{"x": 1}, true))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"x\": 1\n}", string(raw))
}

func TestReadJSON_Missing(t *testing.T) {
	var v map[string]any
	err := ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &v)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "metadata_latest.json"))

	snap := models.NewMetadataSnapshot("r-1", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	snap.Set(models.KeyTables, []models.Row{{"table_name": "ORDERS", "row_count": int64(10)}})
	require.NoError(t, store.Save(snap))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "r-1", loaded.RefreshID)
	assert.Equal(t, "2026-01-02T03:04:05Z", loaded.ExtractedAt)
	require.Len(t, loaded.Tables, 1)
	assert.Equal(t, "ORDERS", loaded.Tables[0]["table_name"])
	assert.NotNil(t, loaded.ColumnStats)
}

func TestSnapshotStore_NotFound(t *testing.T) {
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "none.json"))

	_, err := store.Load()
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
