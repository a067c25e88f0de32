package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/partmanager/internal/types"
)

// DomainEvent carries the canonical shape of every domain event.
type DomainEvent struct {
	ID               string
	EventType        string
	OccurredAt       time.Time
	AffectedEntities []types.SourceRef
	Summary          string
	Category         string // "property", "tenant", "payment", "data"
	Payload          json.RawMessage
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Change describes what happened to an entity.
type Change string

const (
	Added   Change = "added"
	Updated Change = "updated"
	Removed Change = "removed"
)

// ── Property events ──────────────────────────────────────────────────────────

// EntityChangedPayload carries the data for building, apartment, room and
// expense changes.
type EntityChangedPayload struct {
	EntityType  string `json:"entity_type"` // "building", "apartment", "room", "expense"
	EntityID    string `json:"entity_id"`
	BuildingID  string `json:"building_id,omitempty"`
	ApartmentID string `json:"apartment_id,omitempty"`
	Name        string `json:"name"`
	Change      Change `json:"change"`
}

// NewEntityChanged builds e.g. "room_added" or "building_removed".
func NewEntityChanged(p EntityChangedPayload) DomainEvent {
	refs := []types.SourceRef{{EntityType: p.EntityType, EntityID: p.EntityID, Role: "subject"}}
	if p.ApartmentID != "" && p.ApartmentID != p.EntityID {
		refs = append(refs, types.SourceRef{EntityType: "apartment", EntityID: p.ApartmentID, Role: "context"})
	}
	if p.BuildingID != "" && p.BuildingID != p.EntityID {
		refs = append(refs, types.SourceRef{EntityType: "building", EntityID: p.BuildingID, Role: "context"})
	}
	return DomainEvent{
		ID:               newID(),
		EventType:        p.EntityType + "_" + string(p.Change),
		OccurredAt:       time.Now(),
		AffectedEntities: refs,
		Summary:          fmt.Sprintf("%s %q %s", p.EntityType, p.Name, p.Change),
		Category:         "property",
		Payload:          mustJSON(p),
	}
}

// ── Tenant events ────────────────────────────────────────────────────────────

// TenantChangedPayload carries the data for tenant changes.
type TenantChangedPayload struct {
	TenantID    string `json:"tenant_id"`
	ApartmentID string `json:"apartment_id"`
	RoomID      string `json:"room_id"`
	Name        string `json:"name"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Change      Change `json:"change"`
}

func NewTenantChanged(p TenantChangedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "tenant_" + string(p.Change),
		OccurredAt: time.Now(),
		AffectedEntities: []types.SourceRef{
			{EntityType: "tenant", EntityID: p.TenantID, Role: "subject"},
			{EntityType: "room", EntityID: p.RoomID, Role: "target"},
			{EntityType: "apartment", EntityID: p.ApartmentID, Role: "context"},
		},
		Summary:  fmt.Sprintf("Tenant %s %s in room %s", p.Name, p.Change, short(p.RoomID)),
		Category: "tenant",
		Payload:  mustJSON(p),
	}
}

// ── Payment events ───────────────────────────────────────────────────────────

// PaymentsScheduledPayload carries the data for generated rent and added
// bill payments.
type PaymentsScheduledPayload struct {
	ApartmentID string   `json:"apartment_id"`
	Type        string   `json:"type"` // "rent" or "bill"
	Month       int      `json:"month"`
	Year        int      `json:"year"`
	PaymentIDs  []string `json:"payment_ids"`
	Total       float64  `json:"total"`
}

func NewPaymentsScheduled(p PaymentsScheduledPayload) DomainEvent {
	eventType := "rent_payments_generated"
	if p.Type == string(types.PaymentBill) {
		eventType = "bill_payments_added"
	}
	refs := []types.SourceRef{{EntityType: "apartment", EntityID: p.ApartmentID, Role: "subject"}}
	for _, id := range p.PaymentIDs {
		refs = append(refs, types.SourceRef{EntityType: "payment", EntityID: id, Role: "target"})
	}
	return DomainEvent{
		ID:               newID(),
		EventType:        eventType,
		OccurredAt:       time.Now(),
		AffectedEntities: refs,
		Summary:          fmt.Sprintf("%d %s payments scheduled for %04d-%02d", len(p.PaymentIDs), p.Type, p.Year, p.Month),
		Category:         "payment",
		Payload:          mustJSON(p),
	}
}

// PaymentChangedPayload carries the data for a single payment change.
type PaymentChangedPayload struct {
	ApartmentID string  `json:"apartment_id"`
	PaymentID   string  `json:"payment_id"`
	TenantID    string  `json:"tenant_id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	PaidDate    string  `json:"paid_date,omitempty"`
}

// NewPaymentMarked builds "payment_paid" or "payment_unpaid" depending on
// whether PaidDate is set.
func NewPaymentMarked(p PaymentChangedPayload) DomainEvent {
	eventType, verb := "payment_paid", "marked paid"
	if p.PaidDate == "" {
		eventType, verb = "payment_unpaid", "marked unpaid"
	}
	return DomainEvent{
		ID:         newID(),
		EventType:  eventType,
		OccurredAt: time.Now(),
		AffectedEntities: []types.SourceRef{
			{EntityType: "payment", EntityID: p.PaymentID, Role: "subject"},
			{EntityType: "tenant", EntityID: p.TenantID, Role: "related"},
			{EntityType: "apartment", EntityID: p.ApartmentID, Role: "context"},
		},
		Summary:  fmt.Sprintf("%s payment of %.2f %s", p.Type, p.Amount, verb),
		Category: "payment",
		Payload:  mustJSON(p),
	}
}

func NewPaymentRemoved(p PaymentChangedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "payment_removed",
		OccurredAt: time.Now(),
		AffectedEntities: []types.SourceRef{
			{EntityType: "payment", EntityID: p.PaymentID, Role: "subject"},
			{EntityType: "apartment", EntityID: p.ApartmentID, Role: "context"},
		},
		Summary:  fmt.Sprintf("%s payment %s removed", p.Type, short(p.PaymentID)),
		Category: "payment",
		Payload:  mustJSON(p),
	}
}

// ── Data events ──────────────────────────────────────────────────────────────

// SnapshotReplacedPayload carries the data for imports and sync pushes.
type SnapshotReplacedPayload struct {
	Source     string `json:"source"` // "import", "sync"
	Buildings  int    `json:"buildings"`
	Apartments int    `json:"apartments"`
}

func NewSnapshotReplaced(p SnapshotReplacedPayload, buildingIDs []string) DomainEvent {
	refs := make([]types.SourceRef, 0, len(buildingIDs))
	for _, id := range buildingIDs {
		refs = append(refs, types.SourceRef{EntityType: "building", EntityID: id, Role: "subject"})
	}
	return DomainEvent{
		ID:               newID(),
		EventType:        "snapshot_replaced",
		OccurredAt:       time.Now(),
		AffectedEntities: refs,
		Summary:          fmt.Sprintf("Snapshot replaced from %s: %d buildings, %d apartments", p.Source, p.Buildings, p.Apartments),
		Category:         "data",
		Payload:          mustJSON(p),
	}
}
