// Package worker contains event consumers that keep derived data current.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/matthewbaird/partmanager/internal/event"
	"github.com/matthewbaird/partmanager/internal/types"
)

// RentGenerator creates missing rent payments for a period.
type RentGenerator interface {
	Today() types.Date
	GenerateRentPayments(ctx context.Context, aptID string, month time.Month, year int) ([]types.Payment, error)
}

// RentSyncWorker fills in the current month's rent for an apartment
// whenever its tenants change, so a new or moved tenant is billed without
// an explicit generate call.
type RentSyncWorker struct {
	rent RentGenerator
	log  *slog.Logger
}

// NewRentSyncWorker creates a new rent sync worker.
func NewRentSyncWorker(rent RentGenerator, logger *slog.Logger) *RentSyncWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RentSyncWorker{rent: rent, log: logger.With("component", "rent_sync")}
}

// HandleEvent implements eventbus.Handler.
func (w *RentSyncWorker) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	switch evt.EventType {
	case "tenant_added", "tenant_updated":
	default:
		return nil
	}
	aptID := apartmentOf(evt)
	if aptID == "" {
		return nil
	}

	today := w.rent.Today()
	created, err := w.rent.GenerateRentPayments(ctx, aptID, today.Month, today.Year)
	if err != nil {
		return err
	}
	if len(created) > 0 {
		w.log.Info("rent generated", "apartment_id", aptID, "month", int(today.Month), "year", today.Year, "count", len(created))
	}
	return nil
}

func apartmentOf(evt event.DomainEvent) string {
	for _, ref := range evt.AffectedEntities {
		if ref.EntityType == "apartment" {
			return ref.EntityID
		}
	}
	return ""
}
