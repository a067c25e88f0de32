package eventbus

import (
	"context"
	"log/slog"

	"github.com/matthewbaird/partmanager/internal/event"
)

// LogConsumer logs all domain events for observability.
type LogConsumer struct {
	log *slog.Logger
}

func NewLogConsumer(logger *slog.Logger) *LogConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogConsumer{log: logger.With("component", "event")}
}

func (c *LogConsumer) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	entities := make([]string, len(evt.AffectedEntities))
	for i, ref := range evt.AffectedEntities {
		id := ref.EntityID
		if len(id) > 8 {
			id = id[:8]
		}
		entities[i] = ref.EntityType + ":" + id
	}
	c.log.InfoContext(ctx, evt.Summary,
		"event_type", evt.EventType,
		"category", evt.Category,
		"entities", entities,
	)
	return nil
}
