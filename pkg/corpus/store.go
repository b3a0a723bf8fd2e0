package corpus

import (
	"errors"
	"os"

	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/storage"
)

// Save writes the corpus as an indented JSON array.
func Save(docs []models.Document, path string) error {
	if docs == nil {
		docs = []models.Document{}
	}
	return storage.WriteJSON(path, docs, true)
}

// Load reads a saved corpus. A missing file is an empty corpus.
func Load(path string) ([]models.Document, error) {
	var docs []models.Document
	if err := storage.ReadJSON(path, &docs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.Document{}, nil
		}
		return nil, err
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}
