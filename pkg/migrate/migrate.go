// Package migrate applies the goose SQL migrations that ship embedded in
// every binary. A directory on disk can replace the embedded set.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

// DefaultDir is where new migration files are written.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source returns the embedded migrations, or dir's contents when dir is set.
func Source(dir string) (fs.FS, error) {
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("migrations dir %q: %w", dir, err)
		}
		return os.DirFS(dir), nil
	}
	return fs.Sub(embedded, "migrations")
}

// Result is one applied or rolled back migration.
type Result struct {
	Version   int64
	Path      string
	Direction string
	Empty     bool
}

// Runner wraps a goose provider bound to a postgres connection. It never
// closes the connection it was given.
type Runner struct {
	provider *goose.Provider
}

func NewRunner(db *sql.DB, fsys fs.FS) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if fsys == nil {
		return nil, errors.New("migration source is required")
	}
	provider, err := goose.NewProvider(database.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

func (r *Runner) Up(ctx context.Context) ([]Result, error) {
	applied, err := r.provider.Up(ctx)
	if err != nil {
		return toResults(applied), fmt.Errorf("goose up: %w", err)
	}
	return toResults(applied), nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) (Result, error) {
	res, err := r.provider.Down(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("goose down: %w", err)
	}
	results := toResults([]*goose.MigrationResult{res})
	if len(results) == 0 {
		return Result{}, nil
	}
	return results[0], nil
}

// To moves the schema up or down until target is the current version.
func (r *Runner) To(ctx context.Context, target int64) ([]Result, error) {
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("db version: %w", err)
	}
	var moved []*goose.MigrationResult
	switch {
	case current == target:
		return nil, nil
	case current < target:
		moved, err = r.provider.UpTo(ctx, target)
	default:
		moved, err = r.provider.DownTo(ctx, target)
	}
	if err != nil {
		return toResults(moved), fmt.Errorf("goose to %d: %w", target, err)
	}
	return toResults(moved), nil
}

// Status lists every known migration with its applied state.
func (r *Runner) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	return r.provider.Status(ctx)
}

func (r *Runner) Version(ctx context.Context) (int64, error) {
	return r.provider.GetDBVersion(ctx)
}

func toResults(in []*goose.MigrationResult) []Result {
	out := make([]Result, 0, len(in))
	for _, res := range in {
		if res == nil || res.Source == nil {
			continue
		}
		out = append(out, Result{
			Version:   res.Source.Version,
			Path:      res.Source.Path,
			Direction: res.Direction,
			Empty:     res.Empty,
		})
	}
	return out
}
