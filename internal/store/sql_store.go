package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/matthewbaird/partmanager/internal/types"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// SQLStore keeps the snapshot in normalized tables on SQLite or Postgres.
// Queries are built with ent's dialect-aware SQL builder.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// NewSQLStore wraps an open database. entDialect is dialect.SQLite or
// dialect.Postgres. The schema must already be migrated.
func NewSQLStore(db *sql.DB, entDialect string) *SQLStore {
	return &SQLStore{db: db, dialect: entDialect}
}

// OpenSQL opens the database for kind ("sqlite" or "postgres"), applies
// migrations and returns the store together with the raw handle.
func OpenSQL(ctx context.Context, kind, dsn string) (*SQLStore, *sql.DB, error) {
	var (
		db  *sql.DB
		d   string
		err error
	)
	switch kind {
	case "sqlite":
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite: %w", err)
		}
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
		d = dialect.SQLite
	case "postgres":
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		d = dialect.Postgres
	default:
		return nil, nil, fmt.Errorf("unsupported database kind %q", kind)
	}

	if err := Migrate(ctx, db, d); err != nil {
		db.Close()
		return nil, nil, err
	}
	return NewSQLStore(db, d), db, nil
}

// Dialect returns the ent dialect name of the underlying database.
func (s *SQLStore) Dialect() string { return s.dialect }

func (s *SQLStore) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

// Save replaces every stored row with buildings in one transaction.
func (s *SQLStore) Save(ctx context.Context, buildings []types.Building) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	b := s.builder()
	for _, table := range []string{"payments", "tenants", "expenses", "rooms", "apartments", "buildings"} {
		query, args := b.Delete(table).Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for bi, bld := range buildings {
		ins := b.Insert("buildings").Columns("id", "name", "sort_order").Values(bld.ID, bld.Name, bi)
		if err := exec(ctx, tx, ins); err != nil {
			return fmt.Errorf("inserting building %s: %w", bld.ID, err)
		}
		for ai, apt := range bld.Apartments {
			if err := s.saveApartment(ctx, tx, bld.ID, ai, apt); err != nil {
				return fmt.Errorf("inserting apartment %s: %w", apt.ID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

func (s *SQLStore) saveApartment(ctx context.Context, tx *sql.Tx, buildingID string, pos int, apt types.Apartment) error {
	b := s.builder()
	ins := b.Insert("apartments").Columns("id", "building_id", "name", "sort_order").
		Values(apt.ID, buildingID, apt.Name, pos)
	if err := exec(ctx, tx, ins); err != nil {
		return err
	}

	if len(apt.Rooms) > 0 {
		ins := b.Insert("rooms").Columns("apartment_id", "id", "name", "rent_min", "rent_max", "is_taken", "sort_order")
		for i, r := range apt.Rooms {
			ins.Values(apt.ID, r.ID, r.Name, r.RentMin, r.RentMax, r.IsTaken, i)
		}
		if err := exec(ctx, tx, ins); err != nil {
			return fmt.Errorf("rooms: %w", err)
		}
	}

	if len(apt.Expenses) > 0 {
		ins := b.Insert("expenses").Columns("apartment_id", "id", "name", "amount", "cadence", "sort_order")
		for i, e := range apt.Expenses {
			ins.Values(apt.ID, e.ID, e.Name, e.Amount, string(e.Cadence), i)
		}
		if err := exec(ctx, tx, ins); err != nil {
			return fmt.Errorf("expenses: %w", err)
		}
	}

	if len(apt.Tenants) > 0 {
		ins := b.Insert("tenants").Columns("apartment_id", "id", "room_id", "name", "email", "phone",
			"start_date", "end_date", "notes", "disabled_dates", "rent_collection_day", "sort_order")
		for i, t := range apt.Tenants {
			disabled, err := json.Marshal(orEmpty(t.DisabledDates))
			if err != nil {
				return err
			}
			var rcd any
			if t.RentCollectionDay != nil {
				rcd = *t.RentCollectionDay
			}
			ins.Values(apt.ID, t.ID, t.RoomID, t.Name, t.Email, t.Phone,
				t.StartDate, t.EndDate, t.Notes, string(disabled), rcd, i)
		}
		if err := exec(ctx, tx, ins); err != nil {
			return fmt.Errorf("tenants: %w", err)
		}
	}

	if len(apt.Payments) > 0 {
		ins := b.Insert("payments").Columns("apartment_id", "id", "type", "room_id", "tenant_id",
			"amount", "due_date", "month", "year", "paid_date", "sort_order")
		for i, p := range apt.Payments {
			ins.Values(apt.ID, p.ID, string(p.Type), p.RoomID, p.TenantID,
				p.Amount, p.DueDate, p.Month, p.Year, p.PaidDate, i)
		}
		if err := exec(ctx, tx, ins); err != nil {
			return fmt.Errorf("payments: %w", err)
		}
	}
	return nil
}

// Load assembles the building collection from the normalized tables.
func (s *SQLStore) Load(ctx context.Context) ([]types.Building, error) {
	b := s.builder()

	var buildings []types.Building
	sel := b.Select("id", "name").From(b.Table("buildings")).OrderBy("sort_order")
	err := s.each(ctx, sel, func(rows *sql.Rows) error {
		var bld types.Building
		if err := rows.Scan(&bld.ID, &bld.Name); err != nil {
			return err
		}
		buildings = append(buildings, bld)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading buildings: %w", err)
	}

	apartments := map[string][]types.Apartment{}
	sel = b.Select("id", "building_id", "name").From(b.Table("apartments")).OrderBy("building_id", "sort_order")
	err = s.each(ctx, sel, func(rows *sql.Rows) error {
		var a types.Apartment
		var buildingID string
		if err := rows.Scan(&a.ID, &buildingID, &a.Name); err != nil {
			return err
		}
		apartments[buildingID] = append(apartments[buildingID], a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading apartments: %w", err)
	}

	children, err := s.loadChildren(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]types.Building, 0, len(buildings))
	for _, bld := range buildings {
		apts := apartments[bld.ID]
		bld.Apartments = make([]types.Apartment, 0, len(apts))
		for _, a := range apts {
			c := children[a.ID]
			if c == nil {
				c = &apartmentChildren{}
			}
			a.Rooms = orEmpty(c.rooms)
			a.Expenses = orEmpty(c.expenses)
			a.Tenants = orEmpty(c.tenants)
			a.Payments = orEmpty(c.payments)
			bld.Apartments = append(bld.Apartments, a)
		}
		out = append(out, bld)
	}
	return out, nil
}

type apartmentChildren struct {
	rooms    []types.Room
	expenses []types.Expense
	tenants  []types.Tenant
	payments []types.Payment
}

func (s *SQLStore) loadChildren(ctx context.Context) (map[string]*apartmentChildren, error) {
	b := s.builder()
	children := map[string]*apartmentChildren{}
	of := func(id string) *apartmentChildren {
		c, ok := children[id]
		if !ok {
			c = &apartmentChildren{}
			children[id] = c
		}
		return c
	}

	sel := b.Select("apartment_id", "id", "name", "rent_min", "rent_max", "is_taken").
		From(b.Table("rooms")).OrderBy("apartment_id", "sort_order")
	err := s.each(ctx, sel, func(rows *sql.Rows) error {
		var aptID string
		var r types.Room
		if err := rows.Scan(&aptID, &r.ID, &r.Name, &r.RentMin, &r.RentMax, &r.IsTaken); err != nil {
			return err
		}
		of(aptID).rooms = append(of(aptID).rooms, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading rooms: %w", err)
	}

	sel = b.Select("apartment_id", "id", "name", "amount", "cadence").
		From(b.Table("expenses")).OrderBy("apartment_id", "sort_order")
	err = s.each(ctx, sel, func(rows *sql.Rows) error {
		var aptID, cadence string
		var e types.Expense
		if err := rows.Scan(&aptID, &e.ID, &e.Name, &e.Amount, &cadence); err != nil {
			return err
		}
		e.Cadence = types.ExpenseCadence(cadence)
		of(aptID).expenses = append(of(aptID).expenses, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading expenses: %w", err)
	}

	sel = b.Select("apartment_id", "id", "room_id", "name", "email", "phone", "start_date", "end_date",
		"notes", "disabled_dates", "rent_collection_day").
		From(b.Table("tenants")).OrderBy("apartment_id", "sort_order")
	err = s.each(ctx, sel, func(rows *sql.Rows) error {
		var aptID, disabled string
		var rcd sql.NullInt64
		var t types.Tenant
		if err := rows.Scan(&aptID, &t.ID, &t.RoomID, &t.Name, &t.Email, &t.Phone, &t.StartDate, &t.EndDate,
			&t.Notes, &disabled, &rcd); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(disabled), &t.DisabledDates); err != nil {
			return fmt.Errorf("tenant %s disabled dates: %w", t.ID, err)
		}
		if len(t.DisabledDates) == 0 {
			t.DisabledDates = nil
		}
		if rcd.Valid {
			day := int(rcd.Int64)
			t.RentCollectionDay = &day
		}
		of(aptID).tenants = append(of(aptID).tenants, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading tenants: %w", err)
	}

	sel = b.Select("apartment_id", "id", "type", "room_id", "tenant_id", "amount", "due_date", "month", "year", "paid_date").
		From(b.Table("payments")).OrderBy("apartment_id", "sort_order")
	err = s.each(ctx, sel, func(rows *sql.Rows) error {
		var aptID, typ string
		var p types.Payment
		if err := rows.Scan(&aptID, &p.ID, &typ, &p.RoomID, &p.TenantID, &p.Amount, &p.DueDate,
			&p.Month, &p.Year, &p.PaidDate); err != nil {
			return err
		}
		p.Type = types.PaymentType(typ)
		of(aptID).payments = append(of(aptID).payments, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading payments: %w", err)
	}
	return children, nil
}

func (s *SQLStore) each(ctx context.Context, sel *entsql.Selector, fn func(*sql.Rows) error) error {
	query, args := sel.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func exec(ctx context.Context, tx *sql.Tx, ins *entsql.InsertBuilder) error {
	query, args := ins.Query()
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
