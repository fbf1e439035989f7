package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/civicdesk/civicdesk/config"
	"github.com/civicdesk/civicdesk/internal/bootstrap"
	"github.com/spf13/cobra"
)

const defaultMigrationTimeout = 5 * time.Minute

// adminApp carries what every subcommand needs. Config is loaded lazily so --help works
// without a complete environment.
type adminApp struct {
	out    io.Writer
	logger *slog.Logger
	cfg    config.AppConfig
}

func main() {
	logger := bootstrap.InitLogger()
	app := &adminApp{out: os.Stdout, logger: logger}
	if err := newRootCmd(app).ExecuteContext(context.Background()); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func newRootCmd(app *adminApp) *cobra.Command {
	root := &cobra.Command{
		Use:           "civicdesk-admin",
		Short:         "Operator tasks for civicdesk: migrations, profiles and sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := bootstrap.LoadConfig()
			if err != nil {
				return err
			}
			app.cfg = cfg
			app.out = cmd.OutOrStdout()
			return nil
		},
	}

	root.AddCommand(newMigrateCmd(app), newProfilesCmd(app), newSessionsCmd(app))
	return root
}

func newMigrateCmd(app *adminApp) *cobra.Command {
	timeout := defaultMigrationTimeout
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply profile store migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			// Force migrations regardless of DB_RUN_MIGRATIONS_ON_START.
			cfg := app.cfg
			cfg.Postgres.RunMigrationsOnStart = true
			backend, err := bootstrap.OpenProfileStore(ctx, &cfg, app.logger)
			if err != nil {
				return err
			}
			defer closeQuietly(app.logger, "profile store", backend.Close)
			return writef(app.out, "migrations applied (%s)\n", backend.Kind)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", timeout, "maximum time to wait for migrations")
	return cmd
}

func closeQuietly(logger *slog.Logger, name string, fn func() error) {
	if err := fn(); err != nil {
		logger.Warn("close "+name+" failed", "error", err)
	}
}

func writef(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
