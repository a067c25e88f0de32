package store

import (
	"context"
	"sync"

	"github.com/matthewbaird/partmanager/internal/types"
)

// MemoryStore keeps the snapshot in process memory.
// Intended for demos and testing.
type MemoryStore struct {
	mu        sync.RWMutex
	buildings []types.Building
	saves     int
}

// NewMemoryStore creates a MemoryStore seeded with buildings.
func NewMemoryStore(buildings ...types.Building) *MemoryStore {
	return &MemoryStore{buildings: buildings}
}

func (s *MemoryStore) Load(_ context.Context) ([]types.Building, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.buildings)
}

func (s *MemoryStore) Save(_ context.Context, buildings []types.Building) error {
	cp, err := clone(buildings)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buildings = cp
	s.saves++
	return nil
}

// Saves reports how many times Save has succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
