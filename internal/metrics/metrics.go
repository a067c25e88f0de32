// Package metrics computes the revenue, cost and profit roll-up for an
// apartment from its rooms, tenants and expenses.
package metrics

import (
	"github.com/shopspring/decimal"

	"github.com/matthewbaird/partmanager/internal/money"
	"github.com/matthewbaird/partmanager/internal/occupancy"
	"github.com/matthewbaird/partmanager/internal/types"
)

// IsRoomTaken reports whether room counts as taken at ref. Apartments that
// carry tenant records derive occupancy from active contracts; apartments
// with no tenant records at all fall back to the room's legacy flag.
func IsRoomTaken(apt types.Apartment, room types.Room, ref types.Date) bool {
	if len(apt.Tenants) == 0 {
		return room.IsTaken
	}
	return len(occupancy.ActiveTenantsForRoom(apt.Tenants, room.ID, ref)) > 0
}

var monthsPerYear = decimal.NewFromInt(12)

// Calculate returns the metrics for apt with occupancy evaluated at ref.
// Each taken room contributes once regardless of how many tenants are
// active in it. Expected revenue uses the midpoint of the rent range.
func Calculate(apt types.Apartment, ref types.Date) types.ApartmentMetrics {
	var rev, minRev, maxRev, costs decimal.Decimal
	for _, r := range apt.Rooms {
		if !IsRoomTaken(apt, r, ref) {
			continue
		}
		minRev = minRev.Add(money.Of(r.RentMin))
		maxRev = maxRev.Add(money.Of(r.RentMax))
		rev = rev.Add(money.Midpoint(r.RentMin, r.RentMax))
	}

	for _, e := range apt.Expenses {
		switch e.Cadence {
		case types.CadenceMonthly:
			costs = costs.Add(money.Of(e.Amount))
		case types.CadenceYearly:
			costs = costs.Add(money.Of(e.Amount).Div(monthsPerYear))
		}
	}

	yearRev := rev.Mul(monthsPerYear)
	yearMin := minRev.Mul(monthsPerYear)
	yearMax := maxRev.Mul(monthsPerYear)
	yearCosts := costs.Mul(monthsPerYear)

	f := money.Float
	return types.ApartmentMetrics{
		MonthlyRevenue:    f(rev),
		YearlyRevenue:     f(yearRev),
		MonthlyCosts:      f(costs),
		YearlyCosts:       f(yearCosts),
		MonthlyProfit:     f(rev.Sub(costs)),
		YearlyProfit:      f(yearRev.Sub(yearCosts)),
		MinMonthlyRevenue: f(minRev),
		MaxMonthlyRevenue: f(maxRev),
		MinYearlyRevenue:  f(yearMin),
		MaxYearlyRevenue:  f(yearMax),
		MinMonthlyProfit:  f(minRev.Sub(costs)),
		MaxMonthlyProfit:  f(maxRev.Sub(costs)),
		MinYearlyProfit:   f(yearMin.Sub(yearCosts)),
		MaxYearlyProfit:   f(yearMax.Sub(yearCosts)),
	}
}

// Sum adds metrics field by field.
func Sum(ms ...types.ApartmentMetrics) types.ApartmentMetrics {
	var s types.ApartmentMetrics
	add := money.Add
	for _, m := range ms {
		s.MonthlyRevenue = add(s.MonthlyRevenue, m.MonthlyRevenue)
		s.YearlyRevenue = add(s.YearlyRevenue, m.YearlyRevenue)
		s.MonthlyCosts = add(s.MonthlyCosts, m.MonthlyCosts)
		s.YearlyCosts = add(s.YearlyCosts, m.YearlyCosts)
		s.MonthlyProfit = add(s.MonthlyProfit, m.MonthlyProfit)
		s.YearlyProfit = add(s.YearlyProfit, m.YearlyProfit)
		s.MinMonthlyRevenue = add(s.MinMonthlyRevenue, m.MinMonthlyRevenue)
		s.MaxMonthlyRevenue = add(s.MaxMonthlyRevenue, m.MaxMonthlyRevenue)
		s.MinYearlyRevenue = add(s.MinYearlyRevenue, m.MinYearlyRevenue)
		s.MaxYearlyRevenue = add(s.MaxYearlyRevenue, m.MaxYearlyRevenue)
		s.MinMonthlyProfit = add(s.MinMonthlyProfit, m.MinMonthlyProfit)
		s.MaxMonthlyProfit = add(s.MaxMonthlyProfit, m.MaxMonthlyProfit)
		s.MinYearlyProfit = add(s.MinYearlyProfit, m.MinYearlyProfit)
		s.MaxYearlyProfit = add(s.MaxYearlyProfit, m.MaxYearlyProfit)
	}
	return s
}

// BuildingMetrics is the roll-up of every apartment in a building.
type BuildingMetrics struct {
	BuildingID    string                            `json:"buildingId"`
	Total         types.ApartmentMetrics            `json:"total"`
	Apartments    map[string]types.ApartmentMetrics `json:"apartments"`
	RoomCount     int                               `json:"roomCount"`
	OccupiedRooms int                               `json:"occupiedRooms"`
}

// CalculateBuilding computes per-apartment metrics and their sum.
func CalculateBuilding(b types.Building, ref types.Date) BuildingMetrics {
	out := BuildingMetrics{
		BuildingID: b.ID,
		Apartments: make(map[string]types.ApartmentMetrics, len(b.Apartments)),
	}
	all := make([]types.ApartmentMetrics, 0, len(b.Apartments))
	for _, apt := range b.Apartments {
		m := Calculate(apt, ref)
		out.Apartments[apt.ID] = m
		all = append(all, m)
		out.RoomCount += len(apt.Rooms)
		for _, r := range apt.Rooms {
			if IsRoomTaken(apt, r, ref) {
				out.OccupiedRooms++
			}
		}
	}
	out.Total = Sum(all...)
	return out
}
