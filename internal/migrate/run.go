package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/civicdesk/civicdesk/internal/data/pgxutil"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Dialect describes the SQL differences between supported profile stores.
type Dialect struct {
	Name string
	// Dir is the embedded directory holding this dialect's migrations.
	Dir string
	// Placeholder renders the first bind parameter.
	Placeholder string
	// AppliedAt is the column definition for schema_migrations.applied_at.
	AppliedAt string
}

var (
	Postgres = Dialect{
		Name:        "postgres",
		Dir:         "migrations/postgres",
		Placeholder: "$1",
		AppliedAt:   "TIMESTAMPTZ NOT NULL DEFAULT now()",
	}
	SQLite = Dialect{
		Name:        "sqlite",
		Dir:         "migrations/sqlite",
		Placeholder: "?",
		AppliedAt:   "TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP",
	}
)

// Run applies all Postgres migrations embedded in this package. It is safe to call multiple times.
func Run(ctx context.Context, db *sql.DB) error {
	return RunDialect(ctx, db, Postgres)
}

// RunDialect applies the embedded migrations for d in lexical order, one transaction each.
func RunDialect(ctx context.Context, db *sql.DB, d Dialect) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at `+d.AppliedAt+`
		)`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	files, err := Pending(d)
	if err != nil {
		return err
	}

	for _, f := range files {
		if applyErr := applyMigration(ctx, db, d, f); applyErr != nil {
			return applyErr
		}
	}
	return nil
}

// Pending lists the migration files embedded for d, sorted. Whether each has been
// applied is decided at run time against schema_migrations.
func Pending(d Dialect) ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, d.Dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func applyMigration(ctx context.Context, db *sql.DB, d Dialect, file string) error {
	version := strings.TrimSuffix(file, ".sql")

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ` + d.Placeholder + `)`
	if err := db.QueryRowContext(ctx, query, version).Scan(&exists); err != nil {
		return fmt.Errorf("check migration %s: %w", file, err)
	}
	if exists {
		return nil
	}

	sqlBytes, err := migrationsFS.ReadFile(d.Dir + "/" + file)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", file, err)
	}

	logger := slog.Default().With("component", "migrations", "dialect", d.Name)
	logger.InfoContext(ctx, "applying migration", "version", version)

	return pgxutil.WithSQLTx(ctx, db, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		if _, execErr := tx.ExecContext(ctx, string(sqlBytes)); execErr != nil {
			return fmt.Errorf("exec migration %s: %w", file, execErr)
		}
		insert := `INSERT INTO schema_migrations (version) VALUES (` + d.Placeholder + `)`
		if _, insErr := tx.ExecContext(ctx, insert, version); insErr != nil {
			return fmt.Errorf("record migration %s: %w", file, insErr)
		}
		return nil
	}})
}
