// Package portfolio owns the building collection at runtime. It applies
// mutations to a copy of the current snapshot, persists the copy through a
// store.Store, swaps it in and records a domain event. The computation
// packages (occupancy, metrics, payments) only ever see the snapshot it
// passes them.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/partmanager/internal/event"
	"github.com/matthewbaird/partmanager/internal/snapshot"
	"github.com/matthewbaird/partmanager/internal/store"
	"github.com/matthewbaird/partmanager/internal/types"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned for input that fails validation.
	ErrInvalid = errors.New("invalid input")
	// ErrConflict is returned when a change would break a reference.
	ErrConflict = errors.New("conflict")
)

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Manager serializes access to the building collection.
type Manager struct {
	mu        sync.RWMutex
	buildings []types.Building

	store    store.Store
	decoder  *snapshot.Decoder
	recorder event.Recorder
	log      *slog.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithRecorder records a domain event after every persisted mutation.
func WithRecorder(r event.Recorder) Option { return func(m *Manager) { m.recorder = r } }

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// WithIDs overrides identifier generation.
func WithIDs(newID func() string) Option { return func(m *Manager) { m.newID = newID } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.log = l } }

// New loads the current snapshot from st. The decoder is used by Import
// and is required.
func New(ctx context.Context, st store.Store, decoder *snapshot.Decoder, opts ...Option) (*Manager, error) {
	m := &Manager{
		store:   st,
		decoder: decoder,
		log:     slog.Default(),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("component", "portfolio")

	loaded, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	m.buildings = snapshot.Normalize(loaded, snapshot.CurrentVersion)
	return m, nil
}

// Today returns the current calendar day.
func (m *Manager) Today() types.Date {
	return types.DateOf(m.now())
}

// NewID returns a fresh identifier.
func (m *Manager) NewID() string { return m.newID() }

// Buildings returns a copy of the whole collection.
func (m *Manager) Buildings() []types.Building {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneBuildings(m.buildings)
}

// Building returns one building.
func (m *Manager) Building(id string) (types.Building, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := buildingIndex(m.buildings, id)
	if i < 0 {
		return types.Building{}, notFound("building", id)
	}
	return cloneBuildings(m.buildings[i : i+1])[0], nil
}

// Apartment returns one apartment, looked up across all buildings.
func (m *Manager) Apartment(id string) (types.Apartment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bi, ai := apartmentIndex(m.buildings, id)
	if bi < 0 {
		return types.Apartment{}, notFound("apartment", id)
	}
	return cloneApartment(m.buildings[bi].Apartments[ai]), nil
}

// mutate applies fn to a copy of the collection, persists the result and
// swaps it in. The returned event, if any, is recorded afterwards.
func (m *Manager) mutate(ctx context.Context, fn func(bs []types.Building) ([]types.Building, *event.DomainEvent, error)) error {
	m.mu.Lock()
	next, evt, err := fn(cloneBuildings(m.buildings))
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if err := m.store.Save(ctx, next); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("saving snapshot: %w", err)
	}
	m.buildings = next
	m.mu.Unlock()

	if evt != nil {
		m.record(ctx, *evt)
	}
	return nil
}

// mutateApartment is mutate scoped to one apartment.
func (m *Manager) mutateApartment(ctx context.Context, aptID string, fn func(apt *types.Apartment) (*event.DomainEvent, error)) error {
	return m.mutate(ctx, func(bs []types.Building) ([]types.Building, *event.DomainEvent, error) {
		bi, ai := apartmentIndex(bs, aptID)
		if bi < 0 {
			return nil, nil, notFound("apartment", aptID)
		}
		evt, err := fn(&bs[bi].Apartments[ai])
		return bs, evt, err
	})
}

// record is best-effort: a failure is logged but the mutation stands.
func (m *Manager) record(ctx context.Context, evt event.DomainEvent) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.Record(ctx, evt); err != nil {
		m.log.Error("event recording failed", "event_type", evt.EventType, "error", err)
	}
}

func buildingIndex(bs []types.Building, id string) int {
	return slices.IndexFunc(bs, func(b types.Building) bool { return b.ID == id })
}

func apartmentIndex(bs []types.Building, id string) (int, int) {
	for bi, b := range bs {
		for ai, a := range b.Apartments {
			if a.ID == id {
				return bi, ai
			}
		}
	}
	return -1, -1
}

func cloneBuildings(bs []types.Building) []types.Building {
	out := make([]types.Building, len(bs))
	for i, b := range bs {
		apts := make([]types.Apartment, len(b.Apartments))
		for j, a := range b.Apartments {
			apts[j] = cloneApartment(a)
		}
		b.Apartments = apts
		out[i] = b
	}
	return out
}

func cloneApartment(a types.Apartment) types.Apartment {
	a.Rooms = append([]types.Room{}, a.Rooms...)
	a.Expenses = append([]types.Expense{}, a.Expenses...)
	a.Payments = append([]types.Payment{}, a.Payments...)
	tenants := make([]types.Tenant, len(a.Tenants))
	for i, t := range a.Tenants {
		tenants[i] = cloneTenant(t)
	}
	a.Tenants = tenants
	return a
}

func cloneTenant(t types.Tenant) types.Tenant {
	t.DisabledDates = slices.Clone(t.DisabledDates)
	if t.RentCollectionDay != nil {
		day := *t.RentCollectionDay
		t.RentCollectionDay = &day
	}
	return t
}
