package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/civicdesk/civicdesk/config"
	"github.com/civicdesk/civicdesk/internal/observability/statsd"
	"github.com/civicdesk/civicdesk/internal/ports"
	"github.com/civicdesk/civicdesk/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Auth     *service.AuthService
	Profiles *service.ProfileService
	Sessions *service.SessionKeeper
	Guard    service.Guard
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config   *config.AppConfig
	Provider ports.IdentityProvider
	Profiles ports.ProfileDirectory
	Sessions ports.SessionStore
	Metrics  statsd.Sink // Optional
	Logger   *slog.Logger
}

// NewServices wires the session bootstrap pipeline and the profile service.
func NewServices(deps ServiceDeps) (ServiceContainer, error) {
	if deps.Config == nil {
		return ServiceContainer{}, errors.New("config is required")
	}
	if deps.Provider == nil || deps.Profiles == nil || deps.Sessions == nil {
		return ServiceContainer{}, errors.New("provider, profile store and session store are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	authCfg := deps.Config.Auth

	reader, err := service.NewMetadataReader(authCfg.MetadataNameExpr, authCfg.MetadataRoleExpr)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("metadata expressions: %w", err)
	}

	resolver := service.NewProfileResolver(service.ProfileResolverOptions{
		Store:    deps.Profiles,
		Metadata: reader,
		Observe:  service.ResolverObservability{Logger: logger, Metrics: deps.Metrics},
	})
	keeper := service.NewSessionKeeper(service.SessionKeeperOptions{
		Store:  deps.Sessions,
		TTL:    authCfg.SessionTTL,
		Logger: logger,
	})

	redirect := authCfg.GoTrue.EmailRedirectTo
	if redirect == "" {
		redirect = deps.Config.HTTP.BaseURL
	}
	authSvc := service.NewAuthService(service.AuthServiceOptions{
		Provider: deps.Provider,
		Pipeline: service.AuthPipeline{Resolver: resolver, Sessions: keeper},
		Config: service.AuthServiceConfig{
			RollbackOnUnknownRole: authCfg.RollbackOnUnknownRole,
			EmailRedirectTo:       redirect,
			Logger:                logger,
			Metrics:               deps.Metrics,
		},
	})

	return ServiceContainer{
		Auth:     authSvc,
		Profiles: service.NewProfileService(service.ProfileServiceOptions{Directory: deps.Profiles, Logger: logger}),
		Sessions: keeper,
		Guard:    service.NewGuard(authCfg.RoleMatch == config.RoleMatchFold),
	}, nil
}

// BuildMetrics returns a StatsD client, or nil when metrics are disabled or the agent
// address cannot be dialed. Callers treat a nil client as a no-op sink.
func BuildMetrics(logger *slog.Logger, cfg config.ObservabilityMetricsConfig) *statsd.Client {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}
