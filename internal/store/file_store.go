package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/matthewbaird/partmanager/internal/snapshot"
	"github.com/matthewbaird/partmanager/internal/types"
)

// FileStore keeps the snapshot as an export document on disk. Writes go
// to a temporary file that is renamed into place.
type FileStore struct {
	mu      sync.Mutex
	path    string
	decoder *snapshot.Decoder
}

// NewFileStore returns a FileStore for path. Documents of any supported
// version are accepted on load.
func NewFileStore(path string, decoder *snapshot.Decoder) *FileStore {
	return &FileStore{path: path, decoder: decoder}
}

// Load returns an empty collection when the file does not exist yet.
func (s *FileStore) Load(_ context.Context) ([]types.Building, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []types.Building{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	buildings, err := s.decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.path, err)
	}
	return buildings, nil
}

func (s *FileStore) Save(_ context.Context, buildings []types.Building) error {
	data, err := snapshot.Encode(buildings)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".partmanager-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}
