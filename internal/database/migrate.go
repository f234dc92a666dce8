package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/iliyamo/mechanic-shop/internal/config"
)

// Each supported driver has its own directory of goose migrations because
// the DDL (auto-increment, engine options) differs between MySQL and SQLite.
//
//go:embed migrations/mysql/*.sql migrations/sqlite3/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded schema migrations for one driver.
type Migrator struct {
	provider *goose.Provider
	log      *slog.Logger
}

// NewMigrator builds a goose provider over the migrations for driver.
func NewMigrator(db *sql.DB, driver string, log *slog.Logger) (*Migrator, error) {
	var dialect goose.Dialect
	switch driver {
	case config.DriverMySQL:
		dialect = goose.DialectMySQL
	case config.DriverSQLite:
		dialect = goose.DialectSQLite3
	default:
		return nil, fmt.Errorf("no migrations for driver %q", driver)
	}
	sub, err := fs.Sub(migrationsFS, "migrations/"+driver)
	if err != nil {
		return nil, fmt.Errorf("locating migrations: %w", err)
	}
	p, err := goose.NewProvider(dialect, db, sub)
	if err != nil {
		return nil, fmt.Errorf("creating goose provider: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Migrator{provider: p, log: log.With("component", "migration")}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	from, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("reading current version: %w", err)
	}
	results, err := m.provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	for _, r := range results {
		m.log.Info("applied migration", "version", r.Source.Version, "path", r.Source.Path, "duration", r.Duration)
	}
	to, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("reading final version: %w", err)
	}
	m.log.Info("migrations complete", "from_version", from, "to_version", to)
	return nil
}

// Down rolls back the given number of migrations, most recent first.
func (m *Migrator) Down(ctx context.Context, steps int) error {
	for i := 0; i < steps; i++ {
		r, err := m.provider.Down(ctx)
		if err != nil {
			return fmt.Errorf("rolling back migration: %w", err)
		}
		m.log.Info("rolled back migration", "version", r.Source.Version, "path", r.Source.Path)
	}
	return nil
}

// Status reports the applied state of every known migration.
func (m *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	return m.provider.Status(ctx)
}

// Version returns the highest applied migration version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	return m.provider.GetDBVersion(ctx)
}
