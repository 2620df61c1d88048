// Package db carries the embedded schema migrations.
package db

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the schema up to date. Accepts the same postgres:// URL
// the pool uses; the scheme is rewritten for the migrate pgx5 driver.
func Migrate(databaseURL string) error {
	url := databaseURL
	if rest, ok := strings.CutPrefix(url, "postgres://"); ok {
		url = "pgx5://" + rest
	} else if rest, ok := strings.CutPrefix(url, "postgresql://"); ok {
		url = "pgx5://" + rest
	}
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("db: load migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return fmt.Errorf("db: init migrate: %w", err)
	}
	defer func() {
		_, _ = m.Close()
	}()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("db: apply migrations: %w", err)
	}
	return nil
}
