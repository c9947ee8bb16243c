// internal/store/file.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"jobtrack/internal/models"
)

// FileStore keeps the document in one JSON file, the reference layout:
// {"users": {"<user>": [records...]}}. A missing file reads as an empty
// document so first use needs no setup step.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load(_ context.Context) (*models.Database, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewDatabase(), nil
		}
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}

	db := models.NewDatabase()
	if err := json.Unmarshal(data, db); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	if db.Users == nil {
		db.Users = make(map[string][]models.ApplicationRecord)
	}
	return db, nil
}

func (f *FileStore) Save(_ context.Context, db *models.Database) error {
	data, err := json.Marshal(db)
	if err != nil {
		return fmt.Errorf("encode store document: %w", err)
	}
	// Write through a temp file and rename so a crash mid-write never
	// truncates the document.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
