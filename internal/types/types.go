// Package types provides the Go structs for the property-management data
// model. JSON tags match the import/export document, so these types are
// also the wire representation used by the store, the HTTP API and sync.
package types

import (
	"encoding/json"
	"time"
)

// ExpenseCadence is how often an expense recurs.
type ExpenseCadence string

const (
	CadenceMonthly ExpenseCadence = "monthly"
	CadenceYearly  ExpenseCadence = "yearly"
)

// Valid reports whether c is a known cadence.
func (c ExpenseCadence) Valid() bool {
	return c == CadenceMonthly || c == CadenceYearly
}

// PaymentType distinguishes rent from shared bills.
type PaymentType string

const (
	PaymentRent PaymentType = "rent"
	PaymentBill PaymentType = "bill"
)

// Valid reports whether t is a known payment type.
func (t PaymentType) Valid() bool {
	return t == PaymentRent || t == PaymentBill
}

// Building groups apartments. It carries no computation of its own.
type Building struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Apartments []Apartment `json:"apartments"`
}

// Apartment is the aggregate root for rooms, expenses, tenants and payments.
type Apartment struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Rooms    []Room    `json:"rooms"`
	Expenses []Expense `json:"expenses"`
	Tenants  []Tenant  `json:"tenants"`
	Payments []Payment `json:"payments"`
}

// Room is a rentable unit. IsTaken is only consulted for apartments that
// carry no tenant records at all.
type Room struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	RentMin float64 `json:"rentMin"`
	RentMax float64 `json:"rentMax"`
	IsTaken bool    `json:"isTaken"`
}

// Tenant is an occupant bound to exactly one room. Dates are YYYY-MM-DD
// strings; an empty or unparseable bound means open-ended.
type Tenant struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Email             string   `json:"email,omitempty"`
	Phone             string   `json:"phone,omitempty"`
	RoomID            string   `json:"roomId"`
	StartDate         string   `json:"startDate,omitempty"`
	EndDate           string   `json:"endDate,omitempty"`
	Notes             string   `json:"notes,omitempty"`
	DisabledDates     []string `json:"disabledDates,omitempty"`
	RentCollectionDay *int     `json:"rentCollectionDay,omitempty"`
}

// Expense is a recurring cost of running an apartment.
type Expense struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Amount  float64        `json:"amount"`
	Cadence ExpenseCadence `json:"cadence"`
}

// Payment is a scheduled rent or bill charge for one month. Month is 1-12.
type Payment struct {
	ID       string      `json:"id"`
	Type     PaymentType `json:"type"`
	RoomID   string      `json:"roomId"`
	TenantID string      `json:"tenantId"`
	Amount   float64     `json:"amount"`
	DueDate  string      `json:"dueDate"`
	Month    int         `json:"month"`
	Year     int         `json:"year"`
	PaidDate string      `json:"paidDate,omitempty"`
}

// Paid reports whether the payment has been marked as collected.
func (p Payment) Paid() bool { return p.PaidDate != "" }

// ApartmentMetrics is the financial roll-up of one apartment (or a sum of
// several). Min/max figures assume every taken room pays rentMin/rentMax.
type ApartmentMetrics struct {
	MonthlyRevenue    float64 `json:"monthlyRevenue"`
	YearlyRevenue     float64 `json:"yearlyRevenue"`
	MonthlyCosts      float64 `json:"monthlyCosts"`
	YearlyCosts       float64 `json:"yearlyCosts"`
	MonthlyProfit     float64 `json:"monthlyProfit"`
	YearlyProfit      float64 `json:"yearlyProfit"`
	MinMonthlyRevenue float64 `json:"minMonthlyRevenue"`
	MaxMonthlyRevenue float64 `json:"maxMonthlyRevenue"`
	MinYearlyRevenue  float64 `json:"minYearlyRevenue"`
	MaxYearlyRevenue  float64 `json:"maxYearlyRevenue"`
	MinMonthlyProfit  float64 `json:"minMonthlyProfit"`
	MaxMonthlyProfit  float64 `json:"maxMonthlyProfit"`
	MinYearlyProfit   float64 `json:"minYearlyProfit"`
	MaxYearlyProfit   float64 `json:"maxYearlyProfit"`
}

// SourceRef identifies an entity referenced by a domain event.
type SourceRef struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Role       string `json:"role"` // "subject", "target", "context"
}

// ActivityEntry is a secondary index entry over the domain event log,
// keyed by a referenced entity. One event produces one entry per ref.
type ActivityEntry struct {
	EventID           string          `json:"event_id"`
	EventType         string          `json:"event_type"`
	OccurredAt        time.Time       `json:"occurred_at"`
	IndexedEntityType string          `json:"indexed_entity_type"`
	IndexedEntityID   string          `json:"indexed_entity_id"`
	EntityRole        string          `json:"entity_role"`
	SourceRefs        []SourceRef     `json:"source_refs"`
	Summary           string          `json:"summary"`
	Category          string          `json:"category"` // "property", "tenant", "payment", "data"
	Payload           json.RawMessage `json:"payload"`
}
