package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/civicdesk/civicdesk/config"
	redisadapter "github.com/civicdesk/civicdesk/internal/adapters/redis"
	"github.com/civicdesk/civicdesk/internal/observability/statsd"
)

// Run connects infrastructure, wires services and serves HTTP until ctx is canceled.
func Run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	closeWith := func(name string, fn func() error) {
		if cerr := fn(); cerr != nil {
			logger.ErrorContext(ctx, "close "+name+" failed", "error", cerr)
		}
	}

	var sink statsd.Sink
	if client := BuildMetrics(logger, cfg.Observability.Metrics); client != nil {
		sink = client
		defer closeWith("statsd", client.Close)
	}

	profiles, err := OpenProfileStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeWith("profile store", profiles.Close)

	redisClient, err := ConnectRedis(DatabaseConfig{RedisConfig: cfg.Redis, Logger: logger})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer closeWith("redis", redisClient.Close)

	provider, err := BuildIdentityProvider(ctx, ProviderConfig{
		Auth:            cfg.Auth,
		EmailRedirectTo: cfg.HTTP.BaseURL,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	services, err := NewServices(ServiceDeps{
		Config:   cfg,
		Provider: provider,
		Profiles: profiles.Store,
		Sessions: redisadapter.NewSessionStoreWithPrefix(redisClient, cfg.Redis.SessionPrefix),
		Metrics:  sink,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting civicdesk",
		"auth_mode", cfg.Auth.Mode,
		"profile_store", profiles.Kind,
		"role_match", cfg.Auth.RoleMatch,
		"metrics", sink != nil,
	)

	server := NewHTTPServer(HTTPServerConfig{Config: cfg, Services: services, Logger: logger})
	return ServeHTTP(ctx, ServeConfig{
		Server:          server,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		Logger:          logger,
	})
}
