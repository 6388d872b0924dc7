package db

import (
	"context"
	"database/sql"
	"embed"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/rotisserie/eris"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// goose keeps dialect and filesystem in package globals.
var gooseMu sync.Mutex

// RunMigrations applies embedded SQL migrations for driver via goose. If
// database is nil, it's a no-op.
func RunMigrations(ctx context.Context, database *sql.DB, driver Driver) error {
	if database == nil {
		return nil
	}
	dialect, dir, err := migrationTarget(driver)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationFiles)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return eris.Wrap(err, "goose dialect")
	}
	if err := goose.UpContext(ctx, database, dir); err != nil {
		return eris.Wrapf(err, "migrate %s", driver)
	}
	return nil
}

func migrationTarget(driver Driver) (dialect, dir string, err error) {
	switch driver {
	case DriverPostgres:
		return "postgres", "migrations/postgres", nil
	case DriverSQLite:
		return "sqlite3", "migrations/sqlite", nil
	default:
		return "", "", eris.Errorf("unsupported database driver %q", driver)
	}
}
