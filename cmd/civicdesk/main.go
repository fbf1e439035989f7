package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/civicdesk/civicdesk/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo,gocritic // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	logger = bootstrap.ConfigureLogger(os.Stdout, cfg)

	logger.InfoContext(ctx, "starting civicdesk service",
		"auth_mode", cfg.Auth.Mode,
		"profile_store", cfg.Profiles.Store,
		"http_addr", cfg.HTTP.Addr,
		"dev", cfg.IsDev,
	)
	return bootstrap.Run(ctx, &cfg, logger)
}
