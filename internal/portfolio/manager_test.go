package portfolio

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/partmanager/internal/activity"
	"github.com/matthewbaird/partmanager/internal/event"
	"github.com/matthewbaird/partmanager/internal/payments"
	"github.com/matthewbaird/partmanager/internal/schema"
	"github.com/matthewbaird/partmanager/internal/snapshot"
	"github.com/matthewbaird/partmanager/internal/store"
	"github.com/matthewbaird/partmanager/internal/types"
)

var fixedNow = time.Date(2024, time.February, 10, 9, 0, 0, 0, time.UTC)

type harness struct {
	m        *Manager
	store    *store.MemoryStore
	activity *activity.MemoryStore
}

func newHarness(t *testing.T, seed ...types.Building) *harness {
	t.Helper()
	v, err := schema.New()
	require.NoError(t, err)

	n := 0
	ids := func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
	st := store.NewMemoryStore(seed...)
	acts := activity.NewMemoryStore()
	m, err := New(context.Background(), st, snapshot.NewDecoder(v, ids),
		WithIDs(ids),
		WithClock(func() time.Time { return fixedNow }),
		WithRecorder(event.NewActivityRecorder(acts)),
	)
	require.NoError(t, err)
	return &harness{m: m, store: st, activity: acts}
}

func day(n int) *int { return &n }

// apartment builds a building with one apartment and one room.
func (h *harness) apartment(t *testing.T) (types.Building, types.Apartment, types.Room) {
	t.Helper()
	ctx := context.Background()
	b, err := h.m.AddBuilding(ctx, "Main")
	require.NoError(t, err)
	apt, err := h.m.AddApartment(ctx, b.ID, "Flat 1")
	require.NoError(t, err)
	room, err := h.m.AddRoom(ctx, apt.ID, RoomInput{Name: "Front", RentMin: 1000, RentMax: 1200})
	require.NoError(t, err)
	return b, apt, room
}

func TestManager_BuildingLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	b, err := h.m.AddBuilding(ctx, "  North  ")
	require.NoError(t, err)
	assert.Equal(t, "North", b.Name)

	_, err = h.m.AddBuilding(ctx, " ")
	assert.ErrorIs(t, err, ErrInvalid)

	renamed, err := h.m.RenameBuilding(ctx, b.ID, "South")
	require.NoError(t, err)
	assert.Equal(t, "South", renamed.Name)

	_, err = h.m.RenameBuilding(ctx, "missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, h.m.RemoveBuilding(ctx, b.ID))
	assert.Empty(t, h.m.Buildings())
	assert.ErrorIs(t, h.m.RemoveBuilding(ctx, b.ID), ErrNotFound)
	assert.Equal(t, 3, h.store.Saves())
}

func TestManager_PersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, apt, _ := h.apartment(t)

	loaded, err := h.store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Len(t, loaded[0].Apartments, 1)
	assert.Equal(t, apt.ID, loaded[0].Apartments[0].ID)
	assert.Len(t, loaded[0].Apartments[0].Rooms, 1)
}

func TestManager_ReturnsCopies(t *testing.T) {
	h := newHarness(t)
	_, apt, _ := h.apartment(t)

	got, err := h.m.Apartment(apt.ID)
	require.NoError(t, err)
	got.Rooms[0].Name = "changed"

	again, err := h.m.Apartment(apt.ID)
	require.NoError(t, err)
	assert.Equal(t, "Front", again.Rooms[0].Name)
}

func TestManager_RoomValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, apt, room := h.apartment(t)

	_, err := h.m.AddRoom(ctx, apt.ID, RoomInput{Name: "Bad", RentMin: 10, RentMax: 5})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = h.m.AddRoom(ctx, "missing", RoomInput{Name: "Ok"})
	assert.ErrorIs(t, err, ErrNotFound)

	newMax := 1500.0
	updated, err := h.m.UpdateRoom(ctx, apt.ID, room.ID, RoomPatch{RentMax: &newMax})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, updated.RentMin)
	assert.Equal(t, 1500.0, updated.RentMax)
}

func TestManager_RemoveRoomWithTenantConflicts(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, apt, room := h.apartment(t)

	tenant, err := h.m.AddTenant(ctx, apt.ID, TenantInput{Name: "Ana", RoomID: room.ID})
	require.NoError(t, err)
	assert.ErrorIs(t, h.m.RemoveRoom(ctx, apt.ID, room.ID), ErrConflict)

	require.NoError(t, h.m.RemoveTenant(ctx, apt.ID, tenant.ID))
	require.NoError(t, h.m.RemoveRoom(ctx, apt.ID, room.ID))
}

func TestManager_TenantSanitization(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, apt, room := h.apartment(t)

	tenant, err := h.m.AddTenant(ctx, apt.ID, TenantInput{
		Name:          "Ana",
		RoomID:        room.ID,
		StartDate:     "2024-1-10",
		EndDate:       "2024-01-20",
		DisabledDates: []string{"2024-01-15", "2024-01-25", "2024-01-15", "junk"},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", tenant.StartDate)
	assert.Equal(t, []string{"2024-01-15"}, tenant.DisabledDates)

	end := "2024-01-14"
	updated, err := h.m.UpdateTenant(ctx, apt.ID, tenant.ID, TenantPatch{EndDate: &end})
	require.NoError(t, err)
	assert.Nil(t, updated.DisabledDates, "dates after the new end are pruned")

	_, err = h.m.AddTenant(ctx, apt.ID, TenantInput{Name: "Ben", RoomID: "nope"})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = h.m.AddTenant(ctx, apt.ID, TenantInput{Name: "Ben", RoomID: room.ID, RentCollectionDay: day(32)})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = h.m.AddTenant(ctx, apt.ID, TenantInput{Name: "Ben", RoomID: room.ID, StartDate: "2024-02-01", EndDate: "2024-01-01"})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = h.m.AddTenant(ctx, apt.ID, TenantInput{Name: "Ben", RoomID: room.ID, StartDate: "soon"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestManager_UpdateTenantClearsCollectionDay(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, apt, room := h.apartment(t)

	tenant, err := h.m.AddTenant(ctx, apt.ID, TenantInput{Name: "Ana", RoomID: room.ID, RentCollectionDay: day(5)})
	require.NoError(t, err)
	require.NotNil(t, tenant.RentCollectionDay)

	updated, err := h.m.UpdateTenant(ctx, apt.ID, tenant.ID, TenantPatch{RentCollectionDay: day(0)})
	require.NoError(t, err)
	assert.Nil(t, updated.RentCollectionDay)
}

func TestManager_ToggleTenantDate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, apt, room := h.apartment(t)
	tenant, err := h.m.AddTenant(ctx, apt.ID, TenantInput{Name: "Ana", RoomID: room.ID, StartDate: "2024-02-01"})
	require.NoError(t, err)

	got, err := h.m.ToggleTenantDate(ctx, apt.ID, tenant.ID, types.MustParseDate("2024-02-03"))
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-03"}, got.DisabledDates)

	_, err = h.m.ToggleTenantDate(ctx, apt.ID, tenant.ID, types.MustParseDate("2024-01-03"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestManager_GenerateRentPayments(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, apt, room := h.apartment(t)
	_, err := h.m.AddTenant(ctx, apt.ID, TenantInput{Name: "Ana", RoomID: room.ID, RentCollectionDay: day(31)})
	require.NoError(t, err)

	created, err := h.m.GenerateRentPayments(ctx, apt.ID, time.February, 2024)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "2024-02-29", created[0].DueDate)

	again, err := h.m.GenerateRentPayments(ctx, apt.ID, time.February, 2024)
	require.NoError(t, err)
	assert.Empty(t, again)

	got, err := h.m.Apartment(apt.ID)
	require.NoError(t, err)
	assert.Len(t, got.Payments, 1)

	_, err = h.m.GenerateRentPayments(ctx, apt.ID, 13, 2024)
	assert.ErrorIs(t, err, ErrInvalid)

	entries, _, _, err := h.activity.QueryByEntity(ctx, "apartment", apt.ID, activity.DefaultQueryOptions())
	require.NoError(t, err)
	var generated int
	for _, e := range entries {
		if e.EventType == "rent_payments_generated" {
			generated++
		}
	}
	assert.Equal(t, 1, generated, "a no-op generation records nothing")
}

func TestManager_BillsAndStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, apt, room := h.apartment(t)
	ana, err := h.m.AddTenant(ctx, apt.ID, TenantInput{Name: "Ana", RoomID: room.ID, RentCollectionDay: day(5)})
	require.NoError(t, err)

	split, err := h.m.SplitBill(apt.ID, 90, types.MustParseDate("2024-01-01"), types.MustParseDate("2024-01-30"))
	require.NoError(t, err)
	require.Len(t, split.Allocations, 1)
	assert.InDelta(t, 90.0, split.Allocations[0].Amount, 1e-9)

	bills, err := h.m.AddBillPayments(ctx, apt.ID, split.Allocations, time.January, 2024)
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.Equal(t, ana.ID, bills[0].TenantID)
	assert.Equal(t, "2024-01-05", bills[0].DueDate)

	view, err := h.m.Payments(apt.ID, time.January, 2024)
	require.NoError(t, err)
	require.Len(t, view.Payments, 1)
	assert.Equal(t, payments.StatusOverdue, view.Payments[0].Status)

	paid, err := h.m.TogglePaymentPaid(ctx, apt.ID, bills[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-10", paid.PaidDate)

	view, err = h.m.Payments(apt.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Summary.Paid.Count)

	require.NoError(t, h.m.RemovePayment(ctx, apt.ID, bills[0].ID))
	assert.ErrorIs(t, h.m.RemovePayment(ctx, apt.ID, bills[0].ID), ErrNotFound)

	_, err = h.m.SplitBill(apt.ID, 10, types.Date{}, types.MustParseDate("2024-01-30"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestManager_Metrics(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	b, apt, room := h.apartment(t)
	_, err := h.m.AddTenant(ctx, apt.ID, TenantInput{Name: "Ana", RoomID: room.ID})
	require.NoError(t, err)
	_, err = h.m.AddExpense(ctx, apt.ID, ExpenseInput{Name: "Tax", Amount: 1200, Cadence: types.CadenceYearly})
	require.NoError(t, err)
	_, err = h.m.AddExpense(ctx, apt.ID, ExpenseInput{Name: "Bad", Amount: 1, Cadence: "weekly"})
	assert.ErrorIs(t, err, ErrInvalid)

	m, err := h.m.Metrics(apt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1100.0, m.MonthlyRevenue)
	assert.Equal(t, 100.0, m.MonthlyCosts)
	assert.Equal(t, 1000.0, m.MonthlyProfit)

	bm, err := h.m.BuildingMetrics(b.ID)
	require.NoError(t, err)
	assert.Equal(t, m, bm.Total)
	assert.Equal(t, 1, bm.OccupiedRooms)
}

func TestManager_ImportExport(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.apartment(t)

	data, err := h.m.Export()
	require.NoError(t, err)

	other := newHarness(t)
	require.NoError(t, other.m.Import(ctx, data))
	assert.Equal(t, h.m.Buildings(), other.m.Buildings())

	err = other.m.Import(ctx, []byte(`{"nope": true}`))
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Len(t, other.m.Buildings(), 1, "failed import leaves data untouched")
}

type failingStore struct{ store.MemoryStore }

func (f *failingStore) Save(context.Context, []types.Building) error { return errors.New("disk full") }

func TestManager_SaveFailureKeepsState(t *testing.T) {
	v, err := schema.New()
	require.NoError(t, err)
	m, err := New(context.Background(), &failingStore{}, snapshot.NewDecoder(v, nil))
	require.NoError(t, err)

	_, err = m.AddBuilding(context.Background(), "Main")
	assert.Error(t, err)
	assert.Empty(t, m.Buildings())
}

func TestManager_PresenceDays(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, apt, room := h.apartment(t)
	tenant, err := h.m.AddTenant(ctx, apt.ID, TenantInput{
		Name: "Ana", RoomID: room.ID, StartDate: "2024-01-10", EndDate: "2024-01-20",
		DisabledDates: []string{"2024-01-15"},
	})
	require.NoError(t, err)

	n, err := h.m.PresenceDays(apt.ID, tenant.ID, types.MustParseDate("2024-01-01"), types.MustParseDate("2024-01-31"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = h.m.PresenceDays(apt.ID, "ghost", types.MustParseDate("2024-01-01"), types.MustParseDate("2024-01-31"))
	assert.ErrorIs(t, err, ErrNotFound)
}
