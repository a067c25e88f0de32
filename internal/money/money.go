// Package money does currency arithmetic on decimals. Amounts are stored
// and exchanged as float64; conversion happens at the edges.
package money

import (
	"sort"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// Of converts a stored amount to a decimal using its shortest
// representation, so 0.1 becomes exactly 0.1.
func Of(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// Float converts d back to a stored amount.
func Float(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// Add returns a+b computed in decimal.
func Add(a, b float64) float64 {
	return Float(Of(a).Add(Of(b)))
}

// Midpoint returns the value halfway between a and b.
func Midpoint(a, b float64) decimal.Decimal {
	return Of(a).Add(Of(b)).Div(two)
}

// Split divides total into cent amounts proportional to weights. The parts
// add up to total rounded to cents. Leftover cents go to the largest
// remainders, earlier entries first on ties. Entries with zero weight get
// zero.
func Split(total decimal.Decimal, weights []int) []decimal.Decimal {
	out := make([]decimal.Decimal, len(weights))
	var sum int64
	for _, w := range weights {
		if w > 0 {
			sum += int64(w)
		}
	}
	cents := total.Round(2).Shift(2).IntPart()
	if sum == 0 || cents <= 0 {
		for i := range out {
			out[i] = decimal.Zero
		}
		return out
	}

	parts := make([]int64, len(weights))
	rems := make([]int64, len(weights))
	var assigned int64
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		n := cents * int64(w)
		parts[i] = n / sum
		rems[i] = n % sum
		assigned += parts[i]
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return rems[order[a]] > rems[order[b]] })
	for k := int64(0); k < cents-assigned; k++ {
		parts[order[k]]++
	}

	for i, p := range parts {
		out[i] = decimal.New(p, -2)
	}
	return out
}
