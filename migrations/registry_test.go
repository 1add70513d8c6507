package migrations

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	upgrades "github.com/goliatone/go-upgrades"
	_ "github.com/mattn/go-sqlite3"
)

func TestFilesystems_ReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}

	var postgresFound bool
	var sqliteFound bool
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", entry.Dialect)
		}
		switch entry.Dialect {
		case DialectPostgres:
			postgresFound = true
		case DialectSQLite:
			sqliteFound = true
		}
	}

	if !postgresFound {
		t.Fatalf("expected postgres filesystem")
	}
	if !sqliteFound {
		t.Fatalf("expected sqlite filesystem")
	}
}

func TestRegister_UsesValidationTargets(t *testing.T) {
	var calls []string
	_, err := Register(context.Background(), func(_ context.Context, dialect string, _ string, _ fs.FS) error {
		calls = append(calls, dialect)
		return nil
	}, WithValidationTargets(DialectSQLite))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(calls) != 1 {
		t.Fatalf("expected 1 registration call, got %d", len(calls))
	}
	if calls[0] != DialectSQLite {
		t.Fatalf("expected sqlite registration, got %q", calls[0])
	}
}

func TestRegister_DefaultsToUpgradesSourceLabel(t *testing.T) {
	var labels []string
	_, err := Register(context.Background(), func(_ context.Context, _ string, sourceLabel string, _ fs.FS) error {
		labels = append(labels, sourceLabel)
		return nil
	}, WithValidationTargets(DialectSQLite))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(labels) != 1 || labels[0] != "go-upgrades" {
		t.Fatalf("expected go-upgrades source label, got %v", labels)
	}
}

func TestCoreSchemaMigrationPair_ExistsForBothDialects(t *testing.T) {
	root := upgrades.GetCoreMigrationsFS()
	paths := []string{
		"data/sql/migrations/00001_upgrades_core_schema.up.sql",
		"data/sql/migrations/00001_upgrades_core_schema.down.sql",
		"data/sql/migrations/sqlite/00001_upgrades_core_schema.up.sql",
		"data/sql/migrations/sqlite/00001_upgrades_core_schema.down.sql",
	}
	for _, migrationPath := range paths {
		content, err := fs.ReadFile(root, migrationPath)
		if err != nil {
			t.Fatalf("read migration %s: %v", migrationPath, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			t.Fatalf("expected migration %s to have SQL content", migrationPath)
		}
	}
}

func TestEventFilterMigrationPair_ExistsForBothDialects(t *testing.T) {
	root := upgrades.GetCoreMigrationsFS()
	paths := []string{
		"data/sql/migrations/00002_upgrades_event_filters.up.sql",
		"data/sql/migrations/00002_upgrades_event_filters.down.sql",
		"data/sql/migrations/sqlite/00002_upgrades_event_filters.up.sql",
		"data/sql/migrations/sqlite/00002_upgrades_event_filters.down.sql",
	}
	for _, migrationPath := range paths {
		content, err := fs.ReadFile(root, migrationPath)
		if err != nil {
			t.Fatalf("read migration %s: %v", migrationPath, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			t.Fatalf("expected migration %s to have SQL content", migrationPath)
		}
	}
}

func TestSQLiteCoreSchemaMigration_ApplyAndRollback(t *testing.T) {
	db, err := sql.Open("sqlite3", "file:migrations-core-schema?mode=memory&cache=shared&_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	defer func() { _ = db.Close() }()

	root := upgrades.GetCoreMigrationsFS()
	sqliteMigrations, err := fs.Sub(root, "data/sql/migrations/sqlite")
	if err != nil {
		t.Fatalf("resolve sqlite migrations: %v", err)
	}

	if err := execSQLMigration(context.Background(), db, sqliteMigrations, "00001_upgrades_core_schema.up.sql"); err != nil {
		t.Fatalf("apply core schema up: %v", err)
	}

	insertBinding := `
		INSERT INTO upgrade_bindings (id, name, package_address, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := db.ExecContext(
		context.Background(),
		insertBinding,
		"bind-1", "MathLib", "0xaaa", "1.0", "2026-01-01T00:00:00Z", "2026-01-01T00:00:00Z",
	); err != nil {
		t.Fatalf("insert binding: %v", err)
	}

	if _, err := db.ExecContext(
		context.Background(),
		insertBinding,
		"bind-2", "MathLib", "0xbbb", "1.1", "2026-02-01T00:00:00Z", "2026-02-01T00:00:00Z",
	); err == nil {
		t.Fatalf("expected unique live-name violation for duplicate binding")
	}

	if _, err := db.ExecContext(
		context.Background(),
		"UPDATE upgrade_bindings SET deleted_at = ? WHERE id = ?",
		"2026-03-01T00:00:00Z", "bind-1",
	); err != nil {
		t.Fatalf("soft delete binding: %v", err)
	}

	if _, err := db.ExecContext(
		context.Background(),
		insertBinding,
		"bind-3", "MathLib", "0xccc", "2.0", "2026-03-02T00:00:00Z", "2026-03-02T00:00:00Z",
	); err != nil {
		t.Fatalf("expected re-pin after soft delete to succeed: %v", err)
	}

	if err := execSQLMigration(context.Background(), db, sqliteMigrations, "00002_upgrades_event_filters.up.sql"); err != nil {
		t.Fatalf("apply event filters up: %v", err)
	}

	var indexCount int
	if err := db.QueryRowContext(
		context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?`,
		"ix_upgrade_events_event_type",
	).Scan(&indexCount); err != nil {
		t.Fatalf("query event type index: %v", err)
	}
	if indexCount != 1 {
		t.Fatalf("expected ix_upgrade_events_event_type after up migration")
	}

	if err := execSQLMigration(context.Background(), db, sqliteMigrations, "00002_upgrades_event_filters.down.sql"); err != nil {
		t.Fatalf("apply event filters down: %v", err)
	}
	if err := execSQLMigration(context.Background(), db, sqliteMigrations, "00001_upgrades_core_schema.down.sql"); err != nil {
		t.Fatalf("apply core schema down: %v", err)
	}

	var tableCount int
	if err := db.QueryRowContext(
		context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN (?, ?, ?)`,
		"upgrade_bindings", "upgrade_ownership", "upgrade_events",
	).Scan(&tableCount); err != nil {
		t.Fatalf("query tables after down migration: %v", err)
	}
	if tableCount != 0 {
		t.Fatalf("expected registry tables to be dropped after down migration, found %d", tableCount)
	}
}

func execSQLMigration(ctx context.Context, db *sql.DB, fsys fs.FS, filename string) error {
	content, err := fs.ReadFile(fsys, filepath.Clean(filename))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(content))
	return err
}
