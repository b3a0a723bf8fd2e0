package storage

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// SnapshotStore reads and writes the latest metadata snapshot.
type SnapshotStore interface {
	Save(snapshot *models.MetadataSnapshot) error
	Load() (*models.MetadataSnapshot, error)
	Path() string
}

type fileSnapshotStore struct {
	path string
}

var _ SnapshotStore = (*fileSnapshotStore)(nil)

func NewSnapshotStore(path string) SnapshotStore {
	return &fileSnapshotStore{path: path}
}

// Save overwrites the snapshot file with indented JSON.
func (s *fileSnapshotStore) Save(snapshot *models.MetadataSnapshot) error {
	return WriteJSON(s.path, snapshot, true)
}

// Load returns apperrors.ErrNotFound when no snapshot has been written yet.
func (s *fileSnapshotStore) Load() (*models.MetadataSnapshot, error) {
	snapshot := models.NewMetadataSnapshot("", time.Time{})
	snapshot.ExtractedAt = ""
	if err := ReadJSON(s.path, snapshot); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("snapshot %s: %w", s.path, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return snapshot, nil
}

func (s *fileSnapshotStore) Path() string { return s.path }
