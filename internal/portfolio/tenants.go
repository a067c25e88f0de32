package portfolio

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/matthewbaird/partmanager/internal/event"
	"github.com/matthewbaird/partmanager/internal/occupancy"
	"github.com/matthewbaird/partmanager/internal/types"
)

// TenantInput is the data needed to create a tenant.
type TenantInput struct {
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	Phone             string   `json:"phone"`
	RoomID            string   `json:"roomId"`
	StartDate         string   `json:"startDate"`
	EndDate           string   `json:"endDate"`
	Notes             string   `json:"notes"`
	DisabledDates     []string `json:"disabledDates"`
	RentCollectionDay *int     `json:"rentCollectionDay"`
}

// TenantPatch holds the tenant fields to change. An empty date string
// clears the bound and a RentCollectionDay of 0 clears the day.
type TenantPatch struct {
	Name              *string   `json:"name"`
	Email             *string   `json:"email"`
	Phone             *string   `json:"phone"`
	RoomID            *string   `json:"roomId"`
	StartDate         *string   `json:"startDate"`
	EndDate           *string   `json:"endDate"`
	Notes             *string   `json:"notes"`
	DisabledDates     *[]string `json:"disabledDates"`
	RentCollectionDay *int      `json:"rentCollectionDay"`
}

// prepareTenant checks t against apt and returns it with canonical dates
// and sanitized excluded dates.
func prepareTenant(apt *types.Apartment, t types.Tenant) (types.Tenant, error) {
	name, err := cleanName("tenant", t.Name)
	if err != nil {
		return t, err
	}
	t.Name = name
	if roomIndex(apt, t.RoomID) < 0 {
		return t, invalid("room %q does not exist in apartment %s", t.RoomID, apt.ID)
	}

	var start, end types.Date
	if t.StartDate = strings.TrimSpace(t.StartDate); t.StartDate != "" {
		d, ok := types.ParseDate(t.StartDate)
		if !ok {
			return t, invalid("startDate %q is not a YYYY-MM-DD date", t.StartDate)
		}
		start, t.StartDate = d, d.String()
	}
	if t.EndDate = strings.TrimSpace(t.EndDate); t.EndDate != "" {
		d, ok := types.ParseDate(t.EndDate)
		if !ok {
			return t, invalid("endDate %q is not a YYYY-MM-DD date", t.EndDate)
		}
		end, t.EndDate = d, d.String()
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return t, invalid("endDate %s is before startDate %s", end, start)
	}
	if t.RentCollectionDay != nil {
		if day := *t.RentCollectionDay; day < 1 || day > 31 {
			return t, invalid("rentCollectionDay %d is outside 1-31", day)
		}
	}
	return occupancy.Sanitize(t), nil
}

func tenantIndex(apt *types.Apartment, id string) int {
	return slices.IndexFunc(apt.Tenants, func(t types.Tenant) bool { return t.ID == id })
}

func tenantEvent(aptID string, t types.Tenant, c event.Change) *event.DomainEvent {
	evt := event.NewTenantChanged(event.TenantChangedPayload{
		TenantID: t.ID, ApartmentID: aptID, RoomID: t.RoomID, Name: t.Name,
		StartDate: t.StartDate, EndDate: t.EndDate, Change: c,
	})
	return &evt
}

// AddTenant registers a tenant in one of the apartment's rooms.
func (m *Manager) AddTenant(ctx context.Context, aptID string, in TenantInput) (types.Tenant, error) {
	var out types.Tenant
	err := m.mutateApartment(ctx, aptID, func(apt *types.Apartment) (*event.DomainEvent, error) {
		t, err := prepareTenant(apt, types.Tenant{
			ID:                m.newID(),
			Name:              in.Name,
			Email:             strings.TrimSpace(in.Email),
			Phone:             strings.TrimSpace(in.Phone),
			RoomID:            in.RoomID,
			StartDate:         in.StartDate,
			EndDate:           in.EndDate,
			Notes:             in.Notes,
			DisabledDates:     in.DisabledDates,
			RentCollectionDay: in.RentCollectionDay,
		})
		if err != nil {
			return nil, err
		}
		apt.Tenants = append(apt.Tenants, t)
		out = cloneTenant(t)
		return tenantEvent(aptID, t, event.Added), nil
	})
	return out, err
}

// UpdateTenant applies a partial update to a tenant. Excluded dates are
// re-sanitized against the new contract range.
func (m *Manager) UpdateTenant(ctx context.Context, aptID, tenantID string, p TenantPatch) (types.Tenant, error) {
	var out types.Tenant
	err := m.mutateApartment(ctx, aptID, func(apt *types.Apartment) (*event.DomainEvent, error) {
		i := tenantIndex(apt, tenantID)
		if i < 0 {
			return nil, notFound("tenant", tenantID)
		}
		t := apt.Tenants[i]
		set := func(dst *string, src *string) {
			if src != nil {
				*dst = *src
			}
		}
		set(&t.Name, p.Name)
		set(&t.Email, p.Email)
		set(&t.Phone, p.Phone)
		set(&t.RoomID, p.RoomID)
		set(&t.StartDate, p.StartDate)
		set(&t.EndDate, p.EndDate)
		set(&t.Notes, p.Notes)
		if p.DisabledDates != nil {
			t.DisabledDates = *p.DisabledDates
		}
		if p.RentCollectionDay != nil {
			if *p.RentCollectionDay == 0 {
				t.RentCollectionDay = nil
			} else {
				day := *p.RentCollectionDay
				t.RentCollectionDay = &day
			}
		}

		t, err := prepareTenant(apt, t)
		if err != nil {
			return nil, err
		}
		apt.Tenants[i] = t
		out = cloneTenant(t)
		return tenantEvent(aptID, t, event.Updated), nil
	})
	return out, err
}

// RemoveTenant deletes a tenant. Their payments are kept as history.
func (m *Manager) RemoveTenant(ctx context.Context, aptID, tenantID string) error {
	return m.mutateApartment(ctx, aptID, func(apt *types.Apartment) (*event.DomainEvent, error) {
		i := tenantIndex(apt, tenantID)
		if i < 0 {
			return nil, notFound("tenant", tenantID)
		}
		t := apt.Tenants[i]
		apt.Tenants = slices.Delete(apt.Tenants, i, i+1)
		return tenantEvent(aptID, t, event.Removed), nil
	})
}

// ToggleTenantDate flips one day in or out of a tenant's excluded dates.
func (m *Manager) ToggleTenantDate(ctx context.Context, aptID, tenantID string, d types.Date) (types.Tenant, error) {
	var out types.Tenant
	err := m.mutateApartment(ctx, aptID, func(apt *types.Apartment) (*event.DomainEvent, error) {
		i := tenantIndex(apt, tenantID)
		if i < 0 {
			return nil, notFound("tenant", tenantID)
		}
		t, err := occupancy.ToggleDisabledDate(apt.Tenants[i], d)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		apt.Tenants[i] = t
		out = cloneTenant(t)
		return tenantEvent(aptID, t, event.Updated), nil
	})
	return out, err
}

// PresenceDays counts the days in [from, to] a tenant is present.
func (m *Manager) PresenceDays(aptID, tenantID string, from, to types.Date) (int, error) {
	if !from.Valid() || !to.Valid() {
		return 0, invalid("presence range needs valid from and to dates")
	}
	apt, err := m.Apartment(aptID)
	if err != nil {
		return 0, err
	}
	i := tenantIndex(&apt, tenantID)
	if i < 0 {
		return 0, notFound("tenant", tenantID)
	}
	return occupancy.PresenceDays(apt.Tenants[i], from, to), nil
}
