package store

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// applyMigrations mirrors internal/pgmigrate.ApplyMigrations's shape —
// wrap the *sql.DB in a migrate driver, point a source at the migrations
// directory, call Up() — with the postgres driver swapped for sqlite3 and
// the file source swapped for an embedded filesystem so the migrations
// ship inside the binary.
func applyMigrations(db *sql.DB, log logrus.FieldLogger) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}

	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	log.Debug("store: schema up to date")
	return nil
}
