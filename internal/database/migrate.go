package database

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" // File source driver
)

// RunMigrations applies the pending SQL migrations found in dir.
// golang-migrate tracks what has been applied in schema_migrations.
func (db *DB) RunMigrations(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("migrations directory %q: %w", dir, err)
	}

	driver, err := postgres.WithInstance(db.DB.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		log.Println("📦 Database: load history schema is current")
	case err != nil:
		return fmt.Errorf("migration failed: %w", err)
	default:
		version, dirty, _ := m.Version()
		log.Printf("📦 Database: load history schema at version %d (dirty: %v)", version, dirty)
	}
	return nil
}
