package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// OpenDatabase opens a SQL handle plus the matching bun dialect for the
// requested driver. Callers hand both to persistence.New, or wrap them
// with OpenBunDB when they want the bun handle directly.
func OpenDatabase(driver, dsn string) (*sql.DB, schema.Dialect, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, nil, fmt.Errorf("sqlstore: database dsn is required")
	}

	switch normalizeDriver(driver) {
	case DriverPostgres:
		sqlDB, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlstore: open postgres database: %w", err)
		}
		return sqlDB, pgdialect.New(), nil
	case DriverSQLite:
		sqlDB, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlstore: open sqlite database: %w", err)
		}
		return sqlDB, sqlitedialect.New(), nil
	default:
		return nil, nil, fmt.Errorf("sqlstore: unsupported database driver %q", driver)
	}
}

// OpenBunDB opens the driver-appropriate handle and wraps it as *bun.DB.
func OpenBunDB(driver, dsn string) (*bun.DB, error) {
	sqlDB, dialect, err := OpenDatabase(driver, dsn)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqlDB, dialect), nil
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pg":
		return DriverPostgres
	case "sqlite", "sqlite3":
		return DriverSQLite
	default:
		return strings.ToLower(strings.TrimSpace(driver))
	}
}
