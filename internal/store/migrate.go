package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"entgo.io/ent/dialect"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies all pending schema migrations. entDialect is one of
// dialect.SQLite or dialect.Postgres.
func Migrate(ctx context.Context, db *sql.DB, entDialect string) error {
	var gd goose.Dialect
	switch entDialect {
	case dialect.SQLite:
		gd = goose.DialectSQLite3
	case dialect.Postgres:
		gd = goose.DialectPostgres
	default:
		return fmt.Errorf("unsupported dialect %q", entDialect)
	}

	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(gd, db, fsys)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	for _, r := range results {
		slog.Info("migration applied", "component", "store", "source", r.Source.Path, "duration", r.Duration)
	}
	return nil
}
