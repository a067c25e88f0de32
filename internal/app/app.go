// Package app wires configuration into a running portfolio: store, activity
// log, event bus and manager. Both binaries start from here.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/matthewbaird/partmanager/internal/activity"
	"github.com/matthewbaird/partmanager/internal/config"
	"github.com/matthewbaird/partmanager/internal/event"
	"github.com/matthewbaird/partmanager/internal/eventbus"
	"github.com/matthewbaird/partmanager/internal/portfolio"
	"github.com/matthewbaird/partmanager/internal/schema"
	"github.com/matthewbaird/partmanager/internal/snapshot"
	"github.com/matthewbaird/partmanager/internal/store"
	"github.com/matthewbaird/partmanager/internal/worker"
)

// App holds the long-lived components.
type App struct {
	Portfolio *portfolio.Manager
	Activity  activity.Store
	Bus       *eventbus.Bus
	Decoder   *snapshot.Decoder

	db *sql.DB
}

// Open builds every component for cfg. Subscribers may be added to Bus
// before Start is called.
func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	v, err := schema.New()
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	dec := snapshot.NewDecoder(v, func() string { return uuid.New().String() })

	a := &App{Decoder: dec}
	var st store.Store
	switch cfg.Store {
	case config.StoreSQLite, config.StorePostgres:
		sqlStore, db, err := store.OpenSQL(ctx, cfg.Store, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.db = db
		st = sqlStore
		a.Activity = activity.NewSQLStore(db, sqlStore.Dialect())
	case config.StoreFile:
		st = store.NewFileStore(cfg.DataFile, dec)
	default:
		st = store.NewMemoryStore()
	}
	if a.Activity == nil {
		a.Activity = activity.NewMemoryStore()
	}

	a.Bus = eventbus.New(cfg.EventBuffer, log)
	a.Bus.Subscribe("log", eventbus.NewLogConsumer(log))

	rec := event.NewActivityRecorder(a.Activity)
	rec.SetPublisher(a.Bus)

	a.Portfolio, err = portfolio.New(ctx, st, dec,
		portfolio.WithRecorder(rec),
		portfolio.WithLogger(log),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.AutoRent {
		a.Bus.Subscribe("rent_sync", worker.NewRentSyncWorker(a.Portfolio, log))
	}
	log.Info("portfolio loaded", "store", cfg.Store, "buildings", len(a.Portfolio.Buildings()))
	return a, nil
}

// Start begins event dispatch.
func (a *App) Start(ctx context.Context) {
	a.Bus.Start(ctx)
}

// Stop drains the bus and releases the database. The bus must have been
// started.
func (a *App) Stop() {
	a.Bus.Stop()
	a.Close()
}

// Close releases the database without touching the bus.
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
}

// DB returns the database handle, or nil for file and memory stores.
func (a *App) DB() *sql.DB { return a.db }
