package portfolio

import (
	"context"
	"strings"

	"github.com/matthewbaird/partmanager/internal/event"
	"github.com/matthewbaird/partmanager/internal/types"
)

func cleanName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("%s name is required", kind)
	}
	return name, nil
}

// AddBuilding creates an empty building.
func (m *Manager) AddBuilding(ctx context.Context, name string) (types.Building, error) {
	name, err := cleanName("building", name)
	if err != nil {
		return types.Building{}, err
	}
	b := types.Building{ID: m.newID(), Name: name, Apartments: []types.Apartment{}}
	err = m.mutate(ctx, func(bs []types.Building) ([]types.Building, *event.DomainEvent, error) {
		evt := event.NewEntityChanged(event.EntityChangedPayload{
			EntityType: "building", EntityID: b.ID, BuildingID: b.ID, Name: b.Name, Change: event.Added,
		})
		return append(bs, b), &evt, nil
	})
	return b, err
}

// RenameBuilding changes a building's name.
func (m *Manager) RenameBuilding(ctx context.Context, id, name string) (types.Building, error) {
	name, err := cleanName("building", name)
	if err != nil {
		return types.Building{}, err
	}
	var out types.Building
	err = m.mutate(ctx, func(bs []types.Building) ([]types.Building, *event.DomainEvent, error) {
		i := buildingIndex(bs, id)
		if i < 0 {
			return nil, nil, notFound("building", id)
		}
		bs[i].Name = name
		out = bs[i]
		evt := event.NewEntityChanged(event.EntityChangedPayload{
			EntityType: "building", EntityID: id, BuildingID: id, Name: name, Change: event.Updated,
		})
		return bs, &evt, nil
	})
	return out, err
}

// RemoveBuilding deletes a building with all its apartments.
func (m *Manager) RemoveBuilding(ctx context.Context, id string) error {
	return m.mutate(ctx, func(bs []types.Building) ([]types.Building, *event.DomainEvent, error) {
		i := buildingIndex(bs, id)
		if i < 0 {
			return nil, nil, notFound("building", id)
		}
		evt := event.NewEntityChanged(event.EntityChangedPayload{
			EntityType: "building", EntityID: id, BuildingID: id, Name: bs[i].Name, Change: event.Removed,
		})
		return append(bs[:i], bs[i+1:]...), &evt, nil
	})
}

// AddApartment creates an empty apartment in a building.
func (m *Manager) AddApartment(ctx context.Context, buildingID, name string) (types.Apartment, error) {
	name, err := cleanName("apartment", name)
	if err != nil {
		return types.Apartment{}, err
	}
	apt := types.Apartment{
		ID:       m.newID(),
		Name:     name,
		Rooms:    []types.Room{},
		Expenses: []types.Expense{},
		Tenants:  []types.Tenant{},
		Payments: []types.Payment{},
	}
	err = m.mutate(ctx, func(bs []types.Building) ([]types.Building, *event.DomainEvent, error) {
		i := buildingIndex(bs, buildingID)
		if i < 0 {
			return nil, nil, notFound("building", buildingID)
		}
		bs[i].Apartments = append(bs[i].Apartments, apt)
		evt := event.NewEntityChanged(event.EntityChangedPayload{
			EntityType: "apartment", EntityID: apt.ID, BuildingID: buildingID, ApartmentID: apt.ID,
			Name: apt.Name, Change: event.Added,
		})
		return bs, &evt, nil
	})
	return apt, err
}

// RenameApartment changes an apartment's name.
func (m *Manager) RenameApartment(ctx context.Context, id, name string) (types.Apartment, error) {
	name, err := cleanName("apartment", name)
	if err != nil {
		return types.Apartment{}, err
	}
	var out types.Apartment
	err = m.mutateApartment(ctx, id, func(apt *types.Apartment) (*event.DomainEvent, error) {
		apt.Name = name
		out = cloneApartment(*apt)
		evt := event.NewEntityChanged(event.EntityChangedPayload{
			EntityType: "apartment", EntityID: id, ApartmentID: id, Name: name, Change: event.Updated,
		})
		return &evt, nil
	})
	return out, err
}

// RemoveApartment deletes an apartment and everything in it.
func (m *Manager) RemoveApartment(ctx context.Context, id string) error {
	return m.mutate(ctx, func(bs []types.Building) ([]types.Building, *event.DomainEvent, error) {
		bi, ai := apartmentIndex(bs, id)
		if bi < 0 {
			return nil, nil, notFound("apartment", id)
		}
		name := bs[bi].Apartments[ai].Name
		bs[bi].Apartments = append(bs[bi].Apartments[:ai], bs[bi].Apartments[ai+1:]...)
		evt := event.NewEntityChanged(event.EntityChangedPayload{
			EntityType: "apartment", EntityID: id, BuildingID: bs[bi].ID, ApartmentID: id,
			Name: name, Change: event.Removed,
		})
		return bs, &evt, nil
	})
}
