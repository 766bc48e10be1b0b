package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var migrationFiles embed.FS

// Run brings the analytics_master schema up to date. With autoMigrate
// disabled it only reports the recorded version and leaves the schema
// untouched, for deployments that manage the schema out of band.
func Run(db *sql.DB, autoMigrate bool) error {
	src, err := iofs.New(migrationFiles, ".")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("bind migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}

	if dirty {
		// The schema is a single baseline migration, so an interrupted run
		// can only have left that one half-applied. Forcing back to the
		// recorded version and re-running Up is always safe here; revisit
		// if a second migration ever lands.
		slog.Warn("[Migrations] Recovering interrupted migration", "version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("clear dirty state at version %d: %w", version, err)
		}
	}

	if !autoMigrate {
		slog.Info("[Migrations] Skipped (auto_migrate disabled)", "version", version)
		return nil
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("[Migrations] Schema up to date", "version", version)
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	applied, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("read schema version after migrating: %w", err)
	}
	slog.Info("[Migrations] Schema migrated", "from", version, "to", applied)
	return nil
}
