package occupancy

import (
	"fmt"

	"github.com/matthewbaird/partmanager/internal/types"
)

// SanitizeDisabledDates returns the tenant's excluded dates that parse and
// lie within whichever contract bounds are set, in canonical YYYY-MM-DD
// form, deduplicated in first-seen order. It returns nil when nothing
// survives so the field can be dropped.
func SanitizeDisabledDates(t types.Tenant) []string {
	if len(t.DisabledDates) == 0 {
		return nil
	}
	seen := make(map[types.Date]struct{}, len(t.DisabledDates))
	var out []string
	for _, s := range t.DisabledDates {
		d, ok := types.ParseDate(s)
		if !ok || !WithinContract(t, d) {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d.String())
	}
	return out
}

// Sanitize returns a copy of t with its excluded dates sanitized.
func Sanitize(t types.Tenant) types.Tenant {
	t.DisabledDates = SanitizeDisabledDates(t)
	return t
}

// ToggleDisabledDate flips d in or out of the tenant's excluded dates and
// returns the updated tenant. Dates outside the contract are rejected.
func ToggleDisabledDate(t types.Tenant, d types.Date) (types.Tenant, error) {
	if !d.Valid() {
		return t, fmt.Errorf("toggle disabled date: invalid date")
	}
	if !WithinContract(t, d) {
		return t, fmt.Errorf("toggle %s: %w", d, ErrOutsideContract)
	}

	current := SanitizeDisabledDates(t)
	next := make([]string, 0, len(current)+1)
	removed := false
	for _, s := range current {
		if s == d.String() {
			removed = true
			continue
		}
		next = append(next, s)
	}
	if !removed {
		next = append(next, d.String())
	}
	if len(next) == 0 {
		next = nil
	}
	t.DisabledDates = next
	return t, nil
}
