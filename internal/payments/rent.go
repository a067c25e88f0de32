// Package payments schedules rent and bill payments for an apartment and
// derives their collection status. Functions take the apartment snapshot
// and return the complete replacement payment list; nothing is mutated.
package payments

import (
	"time"

	"github.com/matthewbaird/partmanager/internal/money"
	"github.com/matthewbaird/partmanager/internal/occupancy"
	"github.com/matthewbaird/partmanager/internal/types"
)

// IDFunc produces identifiers for new payments.
type IDFunc func() string

// referenceDay is the day of the month at which contract activity is
// evaluated when generating rent.
const referenceDay = 15

// GenerateRentPayments ensures every room with an active, collectable
// tenant has exactly one rent payment for month/year. Existing duplicate
// rent payments for the period are collapsed to the first one seen. The
// call is idempotent: running it again on its own output adds nothing.
func GenerateRentPayments(apt types.Apartment, month time.Month, year int, newID IDFunc) []types.Payment {
	out := make([]types.Payment, 0, len(apt.Payments)+len(apt.Rooms))
	covered := make(map[string]bool)
	for _, p := range apt.Payments {
		if isRentFor(p, month, year) {
			if covered[p.RoomID] {
				continue
			}
			covered[p.RoomID] = true
		}
		out = append(out, p)
	}

	ref := types.NewDate(year, month, referenceDay)
	for _, room := range apt.Rooms {
		if covered[room.ID] {
			continue
		}
		tenant, ok := collectableTenant(apt.Tenants, room.ID, ref)
		if !ok {
			continue
		}
		out = append(out, types.Payment{
			ID:       newID(),
			Type:     types.PaymentRent,
			RoomID:   room.ID,
			TenantID: tenant.ID,
			Amount:   money.Float(money.Midpoint(room.RentMin, room.RentMax)),
			DueDate:  types.NewDate(year, month, *tenant.RentCollectionDay).String(),
			Month:    int(month),
			Year:     year,
		})
		covered[room.ID] = true
	}
	return out
}

// collectableTenant returns the first tenant of roomID whose contract is
// active at ref and who has a rent collection day.
func collectableTenant(tenants []types.Tenant, roomID string, ref types.Date) (types.Tenant, bool) {
	for _, t := range occupancy.ActiveTenantsForRoom(tenants, roomID, ref) {
		if t.RentCollectionDay != nil {
			return t, true
		}
	}
	return types.Tenant{}, false
}

func isRentFor(p types.Payment, month time.Month, year int) bool {
	return p.Type == types.PaymentRent && p.Month == int(month) && p.Year == year
}

// ForMonth returns the payments scheduled for month/year, in input order.
func ForMonth(ps []types.Payment, month time.Month, year int) []types.Payment {
	var out []types.Payment
	for _, p := range ps {
		if p.Month == int(month) && p.Year == year {
			out = append(out, p)
		}
	}
	return out
}
