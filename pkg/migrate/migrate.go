package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"
)

const (
	DefaultDir     = "pkg/migrate/migrations"
	DefaultDialect = "postgres"
)

var errNoDB = errors.New("migrate: db is required")

// Run executes a named goose command (up, down, redo, status) against db.
func Run(ctx context.Context, db *sql.DB, dir string, command string, args ...string) error {
	if db == nil {
		return errNoDB
	}
	if dir == "" {
		return errors.New("migrate: dir is required")
	}
	if err := goose.SetDialect(DefaultDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion applies or rolls back migrations until the schema sits at
// version, given as the YYYYMMDDHHMMSS prefix of a migration file.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, version string) error {
	target, err := parseVersion(version)
	if err != nil {
		return err
	}
	if db == nil {
		return errNoDB
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(dir))
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}
	switch {
	case current < target:
		_, err = provider.UpTo(ctx, target)
	case current > target:
		_, err = provider.DownTo(ctx, target)
	}
	if err != nil {
		return fmt.Errorf("migrate %d -> %d: %w", current, target, err)
	}
	return nil
}

func parseVersion(version string) (int64, error) {
	if version == "" {
		return 0, errors.New("migrate: version is required")
	}
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil || target < 0 {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", version)
	}
	return target, nil
}
