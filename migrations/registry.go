// Package migrations resolves the embedded upgrade-registry schema into
// per-dialect filesystems and feeds them to a host's migration runner,
// typically persistence.Client.RegisterSQLMigrations.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	upgrades "github.com/goliatone/go-upgrades"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// dialectSubtrees maps each supported dialect to its directory inside the
// embedded migration root. Postgres files sit at the root; sqlite variants
// live in a subdirectory.
var dialectSubtrees = []struct {
	dialect string
	subdir  string
}{
	{dialect: DialectPostgres, subdir: "."},
	{dialect: DialectSQLite, subdir: "sqlite"},
}

// FilesystemSpec pairs one dialect with the migration files that apply
// to it.
type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

type Registration struct {
	SourceLabel       string
	ValidationTargets []string
	Filesystems       []FilesystemSpec
}

type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

func WithDialectSourceLabel(label string) Option {
	return func(r *Registration) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			r.SourceLabel = trimmed
		}
	}
}

func WithValidationTargets(targets ...string) Option {
	return func(r *Registration) {
		next := normalizeDialects(targets)
		if len(next) > 0 {
			r.ValidationTargets = next
		}
	}
}

func WithFilesystems(filesystems ...FilesystemSpec) Option {
	return func(r *Registration) {
		replacement := make([]FilesystemSpec, 0, len(filesystems))
		for _, spec := range filesystems {
			dialect := strings.TrimSpace(strings.ToLower(spec.Dialect))
			if dialect == "" || spec.FS == nil {
				continue
			}
			replacement = append(replacement, FilesystemSpec{
				Dialect: dialect,
				Path:    spec.Path,
				FS:      spec.FS,
			})
		}
		if len(replacement) > 0 {
			r.Filesystems = replacement
		}
	}
}

// Filesystems resolves the embedded migration tree into one filesystem per
// dialect. Every dialect must carry matched up/down pairs; a missing
// counterpart fails resolution.
func Filesystems(sources ...fs.FS) ([]FilesystemSpec, error) {
	root := upgrades.GetCoreMigrationsFS()
	if len(sources) > 0 && sources[0] != nil {
		root = sources[0]
	}

	base, basePath, err := migrationsRoot(root)
	if err != nil {
		return nil, err
	}

	filesystems := make([]FilesystemSpec, 0, len(dialectSubtrees))
	for _, subtree := range dialectSubtrees {
		fsys := base
		path := basePath
		if subtree.subdir != "." {
			sub, subErr := fs.Sub(base, subtree.subdir)
			if subErr != nil {
				return nil, fmt.Errorf("migrations: resolve %s filesystem: %w", subtree.dialect, subErr)
			}
			fsys = sub
			path = joinMigrationPath(basePath, subtree.subdir)
		}
		if err := verifyMigrationPairs(subtree.dialect, path, fsys); err != nil {
			return nil, err
		}
		filesystems = append(filesystems, FilesystemSpec{
			Dialect: subtree.dialect,
			Path:    path,
			FS:      fsys,
		})
	}
	return filesystems, nil
}

// Register resolves the embedded filesystems and feeds each validation
// target's filesystem through registerFn.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel:       "go-upgrades",
		ValidationTargets: []string{DialectPostgres, DialectSQLite},
	}

	filesystems, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = filesystems

	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}

	if err := reg.validate(); err != nil {
		return reg, err
	}
	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}

	targets := make(map[string]struct{}, len(reg.ValidationTargets))
	for _, target := range reg.ValidationTargets {
		targets[target] = struct{}{}
	}
	for _, spec := range reg.Filesystems {
		if _, wanted := targets[spec.Dialect]; !wanted {
			continue
		}
		if spec.FS == nil {
			return reg, fmt.Errorf("migrations: filesystem for %s is nil", spec.Dialect)
		}
		if err := registerFn(ctx, spec.Dialect, reg.SourceLabel, spec.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s (%s): %w", spec.Dialect, spec.Path, err)
		}
	}
	return reg, nil
}

func (r Registration) validate() error {
	if len(r.ValidationTargets) == 0 {
		return fmt.Errorf("migrations: validation targets are required")
	}
	if strings.TrimSpace(r.SourceLabel) == "" {
		return fmt.Errorf("migrations: source label is required")
	}
	if len(r.Filesystems) == 0 {
		return fmt.Errorf("migrations: filesystems are required")
	}
	return nil
}

// verifyMigrationPairs checks that the dialect tree is non-empty and that
// every up migration has a down counterpart.
func verifyMigrationPairs(dialect string, path string, fsys fs.FS) error {
	ups, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return fmt.Errorf("migrations: glob %s %s: %w", dialect, path, err)
	}
	if len(ups) == 0 {
		return fmt.Errorf("migrations: %s filesystem %q has no *.up.sql files", dialect, path)
	}
	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, statErr := fs.Stat(fsys, down); statErr != nil {
			return fmt.Errorf("migrations: %s migration %q has no down counterpart: %w", dialect, up, statErr)
		}
	}
	return nil
}

// migrationsRoot accepts either a module root (embedding
// data/sql/migrations) or a filesystem already rooted at the migration
// directory.
func migrationsRoot(root fs.FS) (fs.FS, string, error) {
	sub, err := fs.Sub(root, "data/sql/migrations")
	if err == nil {
		return sub, "data/sql/migrations", nil
	}

	entries, readErr := fs.ReadDir(root, ".")
	if readErr == nil {
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
				return root, ".", nil
			}
		}
	}
	return nil, "", fmt.Errorf("migrations: data/sql/migrations not found: %w", err)
}

func normalizeDialects(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		dialect := strings.TrimSpace(strings.ToLower(value))
		if dialect == "" {
			continue
		}
		if _, dup := seen[dialect]; dup {
			continue
		}
		seen[dialect] = struct{}{}
		out = append(out, dialect)
	}
	return out
}

func joinMigrationPath(base string, suffix string) string {
	if base == "." {
		return suffix
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(suffix, "/")
}
