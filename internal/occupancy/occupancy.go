// Package occupancy answers who occupies a room on a given day and for how
// many days within a range. All functions are pure and work at calendar-day
// granularity; malformed tenant dates are treated as absent.
package occupancy

import (
	"errors"

	"github.com/matthewbaird/partmanager/internal/types"
)

// ErrOutsideContract is returned when a date lies outside a tenant's
// contract range.
var ErrOutsideContract = errors.New("date outside tenant contract")

// bounds returns the tenant's parsed start and end. Missing or malformed
// bounds come back as the zero Date.
func bounds(t types.Tenant) (start, end types.Date) {
	start, _ = types.ParseDate(t.StartDate)
	end, _ = types.ParseDate(t.EndDate)
	return start, end
}

// IsContractActive reports whether the tenant's contract has not ended by
// ref. Only the end bound is checked: a tenant whose start lies after ref
// still counts as active.
func IsContractActive(t types.Tenant, ref types.Date) bool {
	_, end := bounds(t)
	if end.IsZero() {
		return true
	}
	return !end.Before(ref)
}

// IsDateAfterTenantEnd reports whether d falls after the tenant's end date.
// Tenants without a usable end date never end.
func IsDateAfterTenantEnd(t types.Tenant, d types.Date) bool {
	_, end := bounds(t)
	if end.IsZero() {
		return false
	}
	return d.After(end)
}

// ActiveTenantsForRoom returns the tenants of roomID whose contract is
// active at ref, in input order.
func ActiveTenantsForRoom(tenants []types.Tenant, roomID string, ref types.Date) []types.Tenant {
	var out []types.Tenant
	for _, t := range tenants {
		if t.RoomID == roomID && IsContractActive(t, ref) {
			out = append(out, t)
		}
	}
	return out
}

// WithinContract reports whether d lies inside the tenant's contract,
// honouring both bounds.
func WithinContract(t types.Tenant, d types.Date) bool {
	start, end := bounds(t)
	if !start.IsZero() && d.Before(start) {
		return false
	}
	if !end.IsZero() && d.After(end) {
		return false
	}
	return true
}

// IsOccupiedOn reports whether some tenant of roomID is present on d: the
// day lies within the contract range and is not an excluded date.
func IsOccupiedOn(tenants []types.Tenant, roomID string, d types.Date) bool {
	for _, t := range tenants {
		if t.RoomID != roomID || !WithinContract(t, d) {
			continue
		}
		if _, off := disabledSet(t)[d]; !off {
			return true
		}
	}
	return false
}

// OccupiedRooms counts the rooms of apt that have at least one active
// tenant at ref.
func OccupiedRooms(apt types.Apartment, ref types.Date) int {
	n := 0
	for _, r := range apt.Rooms {
		if len(ActiveTenantsForRoom(apt.Tenants, r.ID, ref)) > 0 {
			n++
		}
	}
	return n
}

// PresenceDays counts the days in [start, end] during which the tenant is
// present: the range is intersected with the contract range and excluded
// dates are subtracted. It returns 0 for an empty intersection or when
// start or end is not a valid date.
func PresenceDays(t types.Tenant, start, end types.Date) int {
	if !start.Valid() || !end.Valid() {
		return 0
	}
	from, to := start, end
	tStart, tEnd := bounds(t)
	if !tStart.IsZero() && tStart.After(from) {
		from = tStart
	}
	if !tEnd.IsZero() && tEnd.Before(to) {
		to = tEnd
	}
	if from.After(to) {
		return 0
	}

	off := disabledSet(t)
	days := 0
	for d := from; !d.After(to); d = d.AddDays(1) {
		if _, skip := off[d]; !skip {
			days++
		}
	}
	return days
}

func disabledSet(t types.Tenant) map[types.Date]struct{} {
	if len(t.DisabledDates) == 0 {
		return nil
	}
	set := make(map[types.Date]struct{}, len(t.DisabledDates))
	for _, s := range t.DisabledDates {
		if d, ok := types.ParseDate(s); ok {
			set[d] = struct{}{}
		}
	}
	return set
}
