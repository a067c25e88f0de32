package payments

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/matthewbaird/partmanager/internal/money"
	"github.com/matthewbaird/partmanager/internal/occupancy"
	"github.com/matthewbaird/partmanager/internal/types"
)

// BillAllocation is one tenant's share of a bill.
type BillAllocation struct {
	TenantID string  `json:"tenantId"`
	Amount   float64 `json:"amount"`
	Days     int     `json:"days,omitempty"`
}

// BillSplit is the result of dividing a bill by days of presence.
type BillSplit struct {
	Total       float64          `json:"total"`
	Start       string           `json:"start"`
	End         string           `json:"end"`
	TotalDays   int              `json:"totalDays"`
	CostPerDay  float64          `json:"costPerDay"`
	Allocations []BillAllocation `json:"allocations"`
}

// SplitBill divides total across tenants in proportion to their presence
// days in [start, end]. Allocations are whole cents and add up to total.
// Tenants with no presence are left out and the allocations are ordered by
// amount, largest first.
func SplitBill(tenants []types.Tenant, total float64, start, end types.Date) BillSplit {
	split := BillSplit{Total: total, Start: start.String(), End: end.String()}

	days := make([]int, len(tenants))
	for i, t := range tenants {
		days[i] = occupancy.PresenceDays(t, start, end)
		split.TotalDays += days[i]
	}
	amounts := make([]decimal.Decimal, len(tenants))
	if split.TotalDays > 0 && total > 0 {
		split.CostPerDay = money.Float(money.Of(total).Div(decimal.NewFromInt(int64(split.TotalDays))))
		amounts = money.Split(money.Of(total), days)
	}

	split.Allocations = []BillAllocation{}
	for i, t := range tenants {
		if days[i] == 0 {
			continue
		}
		split.Allocations = append(split.Allocations, BillAllocation{
			TenantID: t.ID,
			Days:     days[i],
			Amount:   money.Float(amounts[i]),
		})
	}
	sort.SliceStable(split.Allocations, func(i, j int) bool {
		return split.Allocations[i].Amount > split.Allocations[j].Amount
	})
	return split
}

// AddBillPayments appends one bill payment per allocation whose tenant
// belongs to apt. There is no deduplication: every call records new
// charges, so callers invoke it once per intended bill.
func AddBillPayments(apt types.Apartment, bills []BillAllocation, month time.Month, year int, newID IDFunc) []types.Payment {
	out := make([]types.Payment, 0, len(apt.Payments)+len(bills))
	out = append(out, apt.Payments...)

	byID := make(map[string]types.Tenant, len(apt.Tenants))
	for _, t := range apt.Tenants {
		byID[t.ID] = t
	}
	for _, b := range bills {
		t, ok := byID[b.TenantID]
		if !ok {
			continue
		}
		day := 1
		if t.RentCollectionDay != nil {
			day = *t.RentCollectionDay
		}
		out = append(out, types.Payment{
			ID:       newID(),
			Type:     types.PaymentBill,
			RoomID:   t.RoomID,
			TenantID: t.ID,
			Amount:   b.Amount,
			DueDate:  types.NewDate(year, month, day).String(),
			Month:    int(month),
			Year:     year,
		})
	}
	return out
}
