package portfolio

import (
	"context"
	"slices"

	"github.com/matthewbaird/partmanager/internal/event"
	"github.com/matthewbaird/partmanager/internal/types"
)

// RoomInput is the data needed to create a room.
type RoomInput struct {
	Name    string  `json:"name"`
	RentMin float64 `json:"rentMin"`
	RentMax float64 `json:"rentMax"`
	IsTaken bool    `json:"isTaken"`
}

// RoomPatch holds the room fields to change; nil fields are left as is.
type RoomPatch struct {
	Name    *string  `json:"name"`
	RentMin *float64 `json:"rentMin"`
	RentMax *float64 `json:"rentMax"`
	IsTaken *bool    `json:"isTaken"`
}

func validateRoom(r types.Room) error {
	if _, err := cleanName("room", r.Name); err != nil {
		return err
	}
	if r.RentMin < 0 || r.RentMax < 0 {
		return invalid("rent must not be negative")
	}
	if r.RentMin > r.RentMax {
		return invalid("rentMin %.2f exceeds rentMax %.2f", r.RentMin, r.RentMax)
	}
	return nil
}

func roomIndex(apt *types.Apartment, id string) int {
	return slices.IndexFunc(apt.Rooms, func(r types.Room) bool { return r.ID == id })
}

func roomEvent(aptID string, r types.Room, c event.Change) *event.DomainEvent {
	evt := event.NewEntityChanged(event.EntityChangedPayload{
		EntityType: "room", EntityID: r.ID, ApartmentID: aptID, Name: r.Name, Change: c,
	})
	return &evt
}

// AddRoom adds a room to an apartment.
func (m *Manager) AddRoom(ctx context.Context, aptID string, in RoomInput) (types.Room, error) {
	room := types.Room{ID: m.newID(), Name: in.Name, RentMin: in.RentMin, RentMax: in.RentMax, IsTaken: in.IsTaken}
	if err := validateRoom(room); err != nil {
		return types.Room{}, err
	}
	err := m.mutateApartment(ctx, aptID, func(apt *types.Apartment) (*event.DomainEvent, error) {
		apt.Rooms = append(apt.Rooms, room)
		return roomEvent(aptID, room, event.Added), nil
	})
	return room, err
}

// UpdateRoom applies a partial update to a room.
func (m *Manager) UpdateRoom(ctx context.Context, aptID, roomID string, p RoomPatch) (types.Room, error) {
	var out types.Room
	err := m.mutateApartment(ctx, aptID, func(apt *types.Apartment) (*event.DomainEvent, error) {
		i := roomIndex(apt, roomID)
		if i < 0 {
			return nil, notFound("room", roomID)
		}
		r := apt.Rooms[i]
		if p.Name != nil {
			r.Name = *p.Name
		}
		if p.RentMin != nil {
			r.RentMin = *p.RentMin
		}
		if p.RentMax != nil {
			r.RentMax = *p.RentMax
		}
		if p.IsTaken != nil {
			r.IsTaken = *p.IsTaken
		}
		if err := validateRoom(r); err != nil {
			return nil, err
		}
		apt.Rooms[i] = r
		out = r
		return roomEvent(aptID, r, event.Updated), nil
	})
	return out, err
}

// RemoveRoom deletes a room. Rooms that still have tenants are kept and
// ErrConflict is returned.
func (m *Manager) RemoveRoom(ctx context.Context, aptID, roomID string) error {
	return m.mutateApartment(ctx, aptID, func(apt *types.Apartment) (*event.DomainEvent, error) {
		i := roomIndex(apt, roomID)
		if i < 0 {
			return nil, notFound("room", roomID)
		}
		for _, t := range apt.Tenants {
			if t.RoomID == roomID {
				return nil, conflict("room %s still has tenant %s", roomID, t.ID)
			}
		}
		r := apt.Rooms[i]
		apt.Rooms = slices.Delete(apt.Rooms, i, i+1)
		return roomEvent(aptID, r, event.Removed), nil
	})
}
