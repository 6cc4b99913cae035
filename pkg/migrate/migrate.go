package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/pressly/goose/v3"
)

// SourceDir is where new migration files are scaffolded, relative to the repository root.
const SourceDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Files returns the migrations compiled into the binary.
func Files() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Applied describes one migration that ran.
type Applied struct {
	Version  int64
	File     string
	Duration string
}

// Status is the state of one migration against the database.
type Status struct {
	Version int64
	File    string
	Applied bool
}

// Migrator applies the query tracker schema to a postgres or sqlite database. It does
// not own the *sql.DB; closing it is up to the caller.
type Migrator struct {
	provider *goose.Provider
}

// New builds a migrator over fsys. dialect is the gorm dialector name of the connection.
func New(db *sql.DB, dialect string, fsys fs.FS) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if fsys == nil {
		fsys = Files()
	}
	provider, err := goose.NewProvider(gooseDialect(dialect), db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Migrator{provider: provider}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) ([]Applied, error) {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return applied(results), fmt.Errorf("goose up: %w", err)
	}
	return applied(results), nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) ([]Applied, error) {
	result, err := m.provider.Down(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose down: %w", err)
	}
	return applied([]*goose.MigrationResult{result}), nil
}

// Reset rolls back every migration.
func (m *Migrator) Reset(ctx context.Context) ([]Applied, error) {
	results, err := m.provider.DownTo(ctx, 0)
	if err != nil {
		return applied(results), fmt.Errorf("goose reset: %w", err)
	}
	return applied(results), nil
}

// To migrates up or down until version is the newest applied migration. version is
// the YYYYMMDDHHMMSS prefix of a migration file.
func (m *Migrator) To(ctx context.Context, version string) ([]Applied, error) {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil || target < 0 {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", version)
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err = m.provider.UpTo(ctx, target)
	default:
		results, err = m.provider.DownTo(ctx, target)
	}
	if err != nil {
		return applied(results), fmt.Errorf("goose migrate to %d: %w", target, err)
	}
	return applied(results), nil
}

// Version returns the newest applied migration version, 0 on an empty database.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	return m.provider.GetDBVersion(ctx)
}

// Status lists every known migration in version order.
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	states, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	out := make([]Status, 0, len(states))
	for _, st := range states {
		out = append(out, Status{
			Version: st.Source.Version,
			File:    st.Source.Path,
			Applied: st.State == goose.StateApplied,
		})
	}
	return out, nil
}

func applied(results []*goose.MigrationResult) []Applied {
	out := make([]Applied, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		out = append(out, Applied{
			Version:  r.Source.Version,
			File:     r.Source.Path,
			Duration: r.Duration.String(),
		})
	}
	return out
}

func gooseDialect(name string) goose.Dialect {
	switch name {
	case "sqlite", "sqlite3":
		return goose.DialectSQLite3
	default:
		return goose.DialectPostgres
	}
}
