package payments

import (
	"github.com/matthewbaird/partmanager/internal/money"
	"github.com/matthewbaird/partmanager/internal/types"
)

// Status is the collection state of a payment.
type Status string

const (
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
	StatusDue     Status = "due"
)

// StatusOf derives a payment's status on today. A payment whose due date
// cannot be parsed is never overdue.
func StatusOf(p types.Payment, today types.Date) Status {
	if p.Paid() {
		return StatusPaid
	}
	if due, ok := types.ParseDate(p.DueDate); ok && due.Before(today) {
		return StatusOverdue
	}
	return StatusDue
}

// WithStatus pairs a payment with its derived status.
type WithStatus struct {
	types.Payment
	Status Status `json:"status"`
}

// Annotate derives the status of every payment.
func Annotate(ps []types.Payment, today types.Date) []WithStatus {
	out := make([]WithStatus, len(ps))
	for i, p := range ps {
		out[i] = WithStatus{Payment: p, Status: StatusOf(p, today)}
	}
	return out
}

// Bucket is the count and amount of payments in one status.
type Bucket struct {
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// Summary totals payments by status.
type Summary struct {
	Paid    Bucket `json:"paid"`
	Due     Bucket `json:"due"`
	Overdue Bucket `json:"overdue"`
}

// Summarize totals ps by their status on today.
func Summarize(ps []types.Payment, today types.Date) Summary {
	var s Summary
	for _, p := range ps {
		var b *Bucket
		switch StatusOf(p, today) {
		case StatusPaid:
			b = &s.Paid
		case StatusOverdue:
			b = &s.Overdue
		default:
			b = &s.Due
		}
		b.Count++
		b.Amount = money.Add(b.Amount, p.Amount)
	}
	return s
}

// TogglePaid marks the payment paid on today, or clears the paid date if
// it was already set.
func TogglePaid(p types.Payment, today types.Date) types.Payment {
	if p.Paid() {
		p.PaidDate = ""
	} else {
		p.PaidDate = today.String()
	}
	return p
}
