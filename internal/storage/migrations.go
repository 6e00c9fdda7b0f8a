package storage

import (
	"context"
	"embed"
	"io/fs"
	"sort"
	"strings"

	"github.com/rxtech-lab/argo-sizing/pkg/errors"
)

// MigrationsFS embeds the schema of every SQL backend.
//
//go:embed migrations/postgres/*.sql migrations/duckdb/*.sql
var MigrationsFS embed.FS

type execer interface {
	exec(ctx context.Context, sql string) error
}

// runMigrations applies all embedded SQL files of dir in lexical order.
// Migrations are expected to be idempotent.
func runMigrations(ctx context.Context, db execer, dir string) error {
	entries, err := fs.ReadDir(MigrationsFS, dir)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeStorageFailed, err, "read embedded migrations %s", dir)
	}

	var files []string

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)

	for _, file := range files {
		data, err := fs.ReadFile(MigrationsFS, dir+"/"+file)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeStorageFailed, err, "read migration %s", file)
		}

		if strings.TrimSpace(string(data)) == "" {
			continue
		}

		if err := db.exec(ctx, string(data)); err != nil {
			return errors.Wrapf(errors.ErrCodeStorageFailed, err, "apply migration %s", file)
		}
	}

	return nil
}

// RunPostgresMigrations applies the Postgres schema.
func RunPostgresMigrations(ctx context.Context, pool *Pool) error {
	return runMigrations(ctx, pool, "migrations/postgres")
}
