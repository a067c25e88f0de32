// Package store persists the building collection. Every implementation
// treats Save as a full replacement of the previous snapshot.
package store

import (
	"context"
	"encoding/json"

	"github.com/matthewbaird/partmanager/internal/types"
)

// Store loads and saves the complete building collection.
type Store interface {
	Load(ctx context.Context) ([]types.Building, error)
	Save(ctx context.Context, buildings []types.Building) error
}

// clone returns a deep copy so callers never share slices with the store.
func clone(buildings []types.Building) ([]types.Building, error) {
	if buildings == nil {
		return []types.Building{}, nil
	}
	data, err := json.Marshal(buildings)
	if err != nil {
		return nil, err
	}
	var out []types.Building
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
