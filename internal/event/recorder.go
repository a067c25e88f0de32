// Package event describes portfolio mutations as domain events and records
// them in the activity log.
package event

import (
	"context"
	"fmt"

	"github.com/matthewbaird/partmanager/internal/activity"
	"github.com/matthewbaird/partmanager/internal/types"
)

// Recorder persists a domain event.
type Recorder interface {
	Record(ctx context.Context, evt DomainEvent) error
}

// Publisher hands domain events to in-process consumers.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent)
}

// ActivityRecorder indexes each event once per distinct entity it touches
// and then publishes it.
type ActivityRecorder struct {
	store activity.Store
	pub   Publisher
}

func NewActivityRecorder(store activity.Store) *ActivityRecorder {
	return &ActivityRecorder{store: store}
}

// SetPublisher attaches the consumer side. It may be set after the
// recorder is handed to the portfolio manager.
func (r *ActivityRecorder) SetPublisher(p Publisher) {
	r.pub = p
}

// Record writes the activity entries for evt and publishes it. The change
// behind evt is already saved, so evt is published even when the activity
// write fails; the write error is still returned.
func (r *ActivityRecorder) Record(ctx context.Context, evt DomainEvent) error {
	var err error
	if entries := Entries(evt); len(entries) > 0 {
		if werr := r.store.WriteEntries(ctx, entries); werr != nil {
			err = fmt.Errorf("writing activity for %s: %w", evt.EventType, werr)
		}
	}
	if r.pub != nil {
		r.pub.Publish(ctx, evt)
	}
	return err
}

// Entries returns one activity entry per distinct entity in evt. An entity
// listed twice keeps the role it was first listed with.
func Entries(evt DomainEvent) []types.ActivityEntry {
	type key struct{ typ, id string }
	seen := make(map[key]bool, len(evt.AffectedEntities))
	var out []types.ActivityEntry
	for _, ref := range evt.AffectedEntities {
		k := key{ref.EntityType, ref.EntityID}
		if ref.EntityID == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, types.ActivityEntry{
			EventID:           evt.ID,
			EventType:         evt.EventType,
			OccurredAt:        evt.OccurredAt,
			IndexedEntityType: ref.EntityType,
			IndexedEntityID:   ref.EntityID,
			EntityRole:        ref.Role,
			SourceRefs:        evt.AffectedEntities,
			Summary:           evt.Summary,
			Category:          evt.Category,
			Payload:           evt.Payload,
		})
	}
	return out
}
