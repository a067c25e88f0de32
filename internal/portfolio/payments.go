package portfolio

import (
	"context"
	"slices"
	"time"

	"github.com/matthewbaird/partmanager/internal/event"
	"github.com/matthewbaird/partmanager/internal/metrics"
	"github.com/matthewbaird/partmanager/internal/money"
	"github.com/matthewbaird/partmanager/internal/payments"
	"github.com/matthewbaird/partmanager/internal/types"
)

func validPeriod(month time.Month, year int) error {
	if month < time.January || month > time.December {
		return invalid("month %d is outside 1-12", month)
	}
	if year < 1 {
		return invalid("year %d is invalid", year)
	}
	return nil
}

// added returns the payments of next whose IDs are not in prev.
func added(prev, next []types.Payment) []types.Payment {
	seen := make(map[string]bool, len(prev))
	for _, p := range prev {
		seen[p.ID] = true
	}
	var out []types.Payment
	for _, p := range next {
		if !seen[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

func scheduledEvent(aptID string, typ types.PaymentType, month time.Month, year int, ps []types.Payment) *event.DomainEvent {
	p := event.PaymentsScheduledPayload{ApartmentID: aptID, Type: string(typ), Month: int(month), Year: year}
	for _, pay := range ps {
		p.PaymentIDs = append(p.PaymentIDs, pay.ID)
		p.Total = money.Add(p.Total, pay.Amount)
	}
	evt := event.NewPaymentsScheduled(p)
	return &evt
}

// GenerateRentPayments creates the missing rent payments of an apartment
// for month/year and returns the ones created. Calling it again for the
// same period creates nothing.
func (m *Manager) GenerateRentPayments(ctx context.Context, aptID string, month time.Month, year int) ([]types.Payment, error) {
	if err := validPeriod(month, year); err != nil {
		return nil, err
	}
	var created []types.Payment
	err := m.mutateApartment(ctx, aptID, func(apt *types.Apartment) (*event.DomainEvent, error) {
		next := payments.GenerateRentPayments(*apt, month, year, m.newID)
		created = added(apt.Payments, next)
		deduped := len(next) != len(apt.Payments)+len(created)
		apt.Payments = next
		if len(created) == 0 && !deduped {
			return nil, nil
		}
		return scheduledEvent(apt.ID, types.PaymentRent, month, year, created), nil
	})
	return created, err
}

// SplitBill divides a bill across the apartment's tenants by presence.
func (m *Manager) SplitBill(aptID string, total float64, start, end types.Date) (payments.BillSplit, error) {
	if total < 0 {
		return payments.BillSplit{}, invalid("bill total must not be negative")
	}
	if !start.Valid() || !end.Valid() {
		return payments.BillSplit{}, invalid("bill period needs valid start and end dates")
	}
	apt, err := m.Apartment(aptID)
	if err != nil {
		return payments.BillSplit{}, err
	}
	return payments.SplitBill(apt.Tenants, total, start, end), nil
}

// AddBillPayments records one bill payment per allocation. Each call adds
// new charges.
func (m *Manager) AddBillPayments(ctx context.Context, aptID string, bills []payments.BillAllocation, month time.Month, year int) ([]types.Payment, error) {
	if err := validPeriod(month, year); err != nil {
		return nil, err
	}
	for _, b := range bills {
		if b.Amount < 0 {
			return nil, invalid("bill amount for tenant %s is negative", b.TenantID)
		}
	}
	var created []types.Payment
	err := m.mutateApartment(ctx, aptID, func(apt *types.Apartment) (*event.DomainEvent, error) {
		next := payments.AddBillPayments(*apt, bills, month, year, m.newID)
		created = added(apt.Payments, next)
		apt.Payments = next
		if len(created) == 0 {
			return nil, nil
		}
		return scheduledEvent(apt.ID, types.PaymentBill, month, year, created), nil
	})
	return created, err
}

func paymentIndex(apt *types.Apartment, id string) int {
	return slices.IndexFunc(apt.Payments, func(p types.Payment) bool { return p.ID == id })
}

func paymentPayload(aptID string, p types.Payment) event.PaymentChangedPayload {
	return event.PaymentChangedPayload{
		ApartmentID: aptID, PaymentID: p.ID, TenantID: p.TenantID,
		Type: string(p.Type), Amount: p.Amount, PaidDate: p.PaidDate,
	}
}

// TogglePaymentPaid marks a payment paid today, or unpaid if it was paid.
func (m *Manager) TogglePaymentPaid(ctx context.Context, aptID, paymentID string) (types.Payment, error) {
	today := m.Today()
	var out types.Payment
	err := m.mutateApartment(ctx, aptID, func(apt *types.Apartment) (*event.DomainEvent, error) {
		i := paymentIndex(apt, paymentID)
		if i < 0 {
			return nil, notFound("payment", paymentID)
		}
		out = payments.TogglePaid(apt.Payments[i], today)
		apt.Payments[i] = out
		evt := event.NewPaymentMarked(paymentPayload(aptID, out))
		return &evt, nil
	})
	return out, err
}

// RemovePayment deletes a payment.
func (m *Manager) RemovePayment(ctx context.Context, aptID, paymentID string) error {
	return m.mutateApartment(ctx, aptID, func(apt *types.Apartment) (*event.DomainEvent, error) {
		i := paymentIndex(apt, paymentID)
		if i < 0 {
			return nil, notFound("payment", paymentID)
		}
		p := apt.Payments[i]
		apt.Payments = slices.Delete(apt.Payments, i, i+1)
		evt := event.NewPaymentRemoved(paymentPayload(aptID, p))
		return &evt, nil
	})
}

// PaymentView is an apartment's payments with derived status and totals.
type PaymentView struct {
	Payments []payments.WithStatus `json:"payments"`
	Summary  payments.Summary      `json:"summary"`
}

// Payments lists an apartment's payments with their status today. A zero
// month lists every period.
func (m *Manager) Payments(aptID string, month time.Month, year int) (PaymentView, error) {
	apt, err := m.Apartment(aptID)
	if err != nil {
		return PaymentView{}, err
	}
	ps := apt.Payments
	if month != 0 {
		if err := validPeriod(month, year); err != nil {
			return PaymentView{}, err
		}
		ps = payments.ForMonth(ps, month, year)
	}
	today := m.Today()
	return PaymentView{
		Payments: payments.Annotate(ps, today),
		Summary:  payments.Summarize(ps, today),
	}, nil
}

// Metrics computes an apartment's metrics with occupancy as of today.
func (m *Manager) Metrics(aptID string) (types.ApartmentMetrics, error) {
	apt, err := m.Apartment(aptID)
	if err != nil {
		return types.ApartmentMetrics{}, err
	}
	return metrics.Calculate(apt, m.Today()), nil
}

// BuildingMetrics rolls up every apartment of a building as of today.
func (m *Manager) BuildingMetrics(buildingID string) (metrics.BuildingMetrics, error) {
	b, err := m.Building(buildingID)
	if err != nil {
		return metrics.BuildingMetrics{}, err
	}
	return metrics.CalculateBuilding(b, m.Today()), nil
}
