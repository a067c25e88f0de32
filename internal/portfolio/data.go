package portfolio

import (
	"context"
	"fmt"

	"github.com/matthewbaird/partmanager/internal/event"
	"github.com/matthewbaird/partmanager/internal/snapshot"
	"github.com/matthewbaird/partmanager/internal/types"
)

// Export encodes the whole collection as a current-version document.
func (m *Manager) Export() ([]byte, error) {
	return snapshot.Encode(m.Buildings())
}

// Import replaces the collection with a decoded document of any supported
// version.
func (m *Manager) Import(ctx context.Context, data []byte) error {
	buildings, err := m.decoder.Decode(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return m.Replace(ctx, buildings, "import")
}

// Replace swaps in a new building collection, normalizing it first.
// source labels the origin in the resulting event.
func (m *Manager) Replace(ctx context.Context, buildings []types.Building, source string) error {
	next := snapshot.Normalize(buildings, snapshot.CurrentVersion)
	return m.mutate(ctx, func([]types.Building) ([]types.Building, *event.DomainEvent, error) {
		p := event.SnapshotReplacedPayload{Source: source, Buildings: len(next)}
		ids := make([]string, 0, len(next))
		for _, b := range next {
			p.Apartments += len(b.Apartments)
			ids = append(ids, b.ID)
		}
		evt := event.NewSnapshotReplaced(p, ids)
		return cloneBuildings(next), &evt, nil
	})
}
