package portfolio

import (
	"context"
	"slices"

	"github.com/matthewbaird/partmanager/internal/event"
	"github.com/matthewbaird/partmanager/internal/types"
)

// ExpenseInput is the data needed to create an expense.
type ExpenseInput struct {
	Name    string               `json:"name"`
	Amount  float64              `json:"amount"`
	Cadence types.ExpenseCadence `json:"cadence"`
}

// ExpensePatch holds the expense fields to change.
type ExpensePatch struct {
	Name    *string               `json:"name"`
	Amount  *float64              `json:"amount"`
	Cadence *types.ExpenseCadence `json:"cadence"`
}

func validateExpense(e types.Expense) error {
	if _, err := cleanName("expense", e.Name); err != nil {
		return err
	}
	if e.Amount < 0 {
		return invalid("expense amount must not be negative")
	}
	if !e.Cadence.Valid() {
		return invalid("unknown cadence %q", e.Cadence)
	}
	return nil
}

func expenseEvent(aptID string, e types.Expense, c event.Change) *event.DomainEvent {
	evt := event.NewEntityChanged(event.EntityChangedPayload{
		EntityType: "expense", EntityID: e.ID, ApartmentID: aptID, Name: e.Name, Change: c,
	})
	return &evt
}

// AddExpense adds a recurring expense to an apartment.
func (m *Manager) AddExpense(ctx context.Context, aptID string, in ExpenseInput) (types.Expense, error) {
	e := types.Expense{ID: m.newID(), Name: in.Name, Amount: in.Amount, Cadence: in.Cadence}
	if err := validateExpense(e); err != nil {
		return types.Expense{}, err
	}
	err := m.mutateApartment(ctx, aptID, func(apt *types.Apartment) (*event.DomainEvent, error) {
		apt.Expenses = append(apt.Expenses, e)
		return expenseEvent(aptID, e, event.Added), nil
	})
	return e, err
}

// UpdateExpense applies a partial update to an expense.
func (m *Manager) UpdateExpense(ctx context.Context, aptID, expenseID string, p ExpensePatch) (types.Expense, error) {
	var out types.Expense
	err := m.mutateApartment(ctx, aptID, func(apt *types.Apartment) (*event.DomainEvent, error) {
		i := slices.IndexFunc(apt.Expenses, func(e types.Expense) bool { return e.ID == expenseID })
		if i < 0 {
			return nil, notFound("expense", expenseID)
		}
		e := apt.Expenses[i]
		if p.Name != nil {
			e.Name = *p.Name
		}
		if p.Amount != nil {
			e.Amount = *p.Amount
		}
		if p.Cadence != nil {
			e.Cadence = *p.Cadence
		}
		if err := validateExpense(e); err != nil {
			return nil, err
		}
		apt.Expenses[i] = e
		out = e
		return expenseEvent(aptID, e, event.Updated), nil
	})
	return out, err
}

// RemoveExpense deletes an expense.
func (m *Manager) RemoveExpense(ctx context.Context, aptID, expenseID string) error {
	return m.mutateApartment(ctx, aptID, func(apt *types.Apartment) (*event.DomainEvent, error) {
		i := slices.IndexFunc(apt.Expenses, func(e types.Expense) bool { return e.ID == expenseID })
		if i < 0 {
			return nil, notFound("expense", expenseID)
		}
		e := apt.Expenses[i]
		apt.Expenses = slices.Delete(apt.Expenses, i, i+1)
		return expenseEvent(aptID, e, event.Removed), nil
	})
}
