package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Migrate applies pending migrations for the handle's dialect.
func (d *DB) Migrate() error {
	m, err := d.migrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	version, _, _ := m.Version()
	d.log.Info("Migrations applied", map[string]interface{}{"version": version})
	return nil
}

// MigrateDown rolls back every migration.
func (d *DB) MigrateDown() error {
	m, err := d.migrator()
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// migrator must not be closed: that would close the shared pool.
func (d *DB) migrator() (*migrate.Migrate, error) {
	sqlDB, err := d.Gorm.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	var driver migratedb.Driver
	switch d.driver {
	case DriverPostgres:
		driver, err = migratepg.WithInstance(sqlDB, &migratepg.Config{})
	case DriverSQLite:
		driver, err = migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
	default:
		err = fmt.Errorf("unsupported database driver %q", d.driver)
	}
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+d.driver)
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, d.driver, driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}
