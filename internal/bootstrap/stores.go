package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/civicdesk/civicdesk/config"
	"github.com/civicdesk/civicdesk/internal/adapters/sqlite"
	"github.com/civicdesk/civicdesk/internal/data"
	"github.com/civicdesk/civicdesk/internal/ports"
)

// ProfileBackend is the opened profile store and the handle that must be closed on shutdown.
type ProfileBackend struct {
	Store ports.ProfileDirectory
	Kind  config.ProfileStoreKind
	db    *sql.DB
}

// Close releases the underlying database handle.
func (b *ProfileBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// OpenProfileStore connects the configured profile store. Postgres migrations run only when
// DB_RUN_MIGRATIONS_ON_START is set; the SQLite store always migrates on open.
func OpenProfileStore(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*ProfileBackend, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Profiles.Store {
	case config.ProfileStoreSQLite:
		store, err := sqlite.Open(ctx, cfg.Profiles.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite profile store: %w", err)
		}
		logger.InfoContext(ctx, "profile store ready", "kind", cfg.Profiles.Store, "path", cfg.Profiles.SQLitePath)
		return &ProfileBackend{Store: store, Kind: config.ProfileStoreSQLite, db: store.DB()}, nil

	case config.ProfileStorePostgres, "":
		db, err := ConnectDB(DatabaseConfig{DBConfig: cfg.Postgres, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		if cfg.Postgres.RunMigrationsOnStart {
			if err = RunMigrations(ctx, db, logger); err != nil {
				return nil, errors.Join(err, db.Close())
			}
		} else {
			logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
		}
		return &ProfileBackend{Store: data.NewProfileRepo(db), Kind: config.ProfileStorePostgres, db: db}, nil

	default:
		return nil, fmt.Errorf("unsupported profile store %q", cfg.Profiles.Store)
	}
}
