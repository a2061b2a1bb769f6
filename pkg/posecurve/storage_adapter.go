//go:build !js && !wasm

package posecurve

import (
	"errors"
	"fmt"

	"github.com/himanishpuri/PoseCurve/pkg/models"
	"github.com/himanishpuri/PoseCurve/pkg/posecurve/storage"
)

// storageAdapter adapts storage.DBClient to the Storage interface and maps
// its not-found error onto ErrClipNotFound.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage creates a new SQLite storage backend.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrClipNotFound, err)
	}
	return err
}

func (s *storageAdapter) SaveClip(clip *models.Clip) (string, error) {
	return s.db.SaveClip(clip)
}

func (s *storageAdapter) GetClip(clipID string) (*models.Clip, error) {
	clip, err := s.db.GetClip(clipID)
	return clip, mapNotFound(err)
}

func (s *storageAdapter) FindClipBySource(source string, personIdx int) (*models.Clip, error) {
	clip, err := s.db.FindClipBySource(source, personIdx)
	return clip, mapNotFound(err)
}

func (s *storageAdapter) ListClips() ([]models.ClipSummary, error) {
	return s.db.ListClips()
}

func (s *storageAdapter) DeleteClipByID(clipID string) error {
	return mapNotFound(s.db.DeleteClipByID(clipID))
}

func (s *storageAdapter) GetKeyframeCount(clipID string) (int, error) {
	n, err := s.db.GetKeyframeCount(clipID)
	return n, mapNotFound(err)
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}
