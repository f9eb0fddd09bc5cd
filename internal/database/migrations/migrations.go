package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var schemaFS embed.FS

const schemaDir = "files"

// ErrNotMigrated is returned by Check for a database that carries no schema version.
var ErrNotMigrated = errors.New("database has no schema version (needs migration)")

// Status describes where a database stands relative to the embedded schema.
type Status struct {
	Current uint
	Latest  uint
	Dirty   bool
	// Versioned is false for a database no migration has ever touched.
	Versioned bool
}

// Err converts the status into the error Check reports, or nil when the
// database is usable as-is.
func (s Status) Err() error {
	switch {
	case !s.Versioned:
		return ErrNotMigrated
	case s.Dirty:
		return fmt.Errorf("database is in dirty state at version %d (migration failed previously)", s.Current)
	case s.Current < s.Latest:
		return fmt.Errorf("database is at version %d but latest is %d (%d migrations behind)",
			s.Current, s.Latest, s.Latest-s.Current)
	case s.Current > s.Latest:
		return fmt.Errorf("database version %d is ahead of binary version %d (binary needs update)",
			s.Current, s.Latest)
	}
	return nil
}

// Inspect reads the schema version of db and pairs it with the newest
// version embedded in the binary.
func Inspect(db *sql.DB) (Status, error) {
	latest, err := LatestVersion()
	if err != nil {
		return Status{}, err
	}
	st := Status{Latest: latest}

	m, err := open(db)
	if err != nil {
		return Status{}, err
	}
	// m is not closed: closing it closes the caller's db.
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return st, nil
	case err != nil:
		return Status{}, fmt.Errorf("failed to get database version: %w", err)
	}
	st.Current, st.Dirty, st.Versioned = version, dirty, true
	return st, nil
}

// Check returns nil only when db is at exactly the embedded schema version.
func Check(db *sql.DB) error {
	st, err := Inspect(db)
	if err != nil {
		return err
	}
	return st.Err()
}

// LatestVersion returns the newest schema version embedded in the binary.
func LatestVersion() (uint, error) {
	src, err := iofs.New(schemaFS, schemaDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read migration files: %w", err)
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("failed to determine latest version: %w", err)
	}
	// Next fails once there is nothing after v.
	for next, err := src.Next(v); err == nil; next, err = src.Next(v) {
		v = next
	}
	return v, nil
}

// MigrateUp applies every pending migration. An up-to-date database is not an error.
func MigrateUp(db *sql.DB) error {
	m, err := open(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func open(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(schemaFS, schemaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}
