package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/civicdesk/civicdesk/config"
	"github.com/civicdesk/civicdesk/internal/adapters/devauth"
	"github.com/civicdesk/civicdesk/internal/adapters/gotrue"
	"github.com/civicdesk/civicdesk/internal/adapters/oidc"
	"github.com/civicdesk/civicdesk/internal/ports"
)

// ProviderConfig contains configuration for the identity provider.
type ProviderConfig struct {
	Auth config.AuthConfig
	// EmailRedirectTo is used when GOTRUE_EMAIL_REDIRECT_TO is unset.
	EmailRedirectTo string
	Logger          *slog.Logger
}

// BuildIdentityProvider creates the identity provider for the configured auth mode.
//
//nolint:ireturn // the concrete adapter is chosen at runtime.
func BuildIdentityProvider(ctx context.Context, cfg ProviderConfig) (ports.IdentityProvider, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Auth.Mode {
	case config.AuthModeGoTrue:
		gt := cfg.Auth.GoTrue
		redirect := gt.EmailRedirectTo
		if redirect == "" {
			redirect = cfg.EmailRedirectTo
		}
		client, err := gotrue.NewClient(gotrue.Config{
			URL:             gt.URL,
			APIKey:          gt.APIKey,
			JWTSecret:       gt.JWTSecret,
			EmailRedirectTo: redirect,
			Timeout:         gt.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("gotrue provider: %w", err)
		}
		logger.InfoContext(ctx, "identity provider configured", "mode", cfg.Auth.Mode, "url", gt.URL,
			"verify_tokens", gt.JWTSecret != "")
		return client, nil

	case config.AuthModeOIDC:
		o := cfg.Auth.OIDC
		prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
			ClientID:     o.ClientID,
			ClientSecret: o.ClientSecret,
			Scope:        o.Scope,
			DiscoveryURL: o.DiscoveryURL,
			HTTPClient:   &http.Client{Timeout: o.Timeout},
		})
		if err != nil {
			return nil, fmt.Errorf("oidc provider: %w", err)
		}
		logger.InfoContext(ctx, "identity provider configured", "mode", cfg.Auth.Mode, "discovery_url", o.DiscoveryURL)
		return prov, nil

	case config.AuthModeMock:
		prov, err := buildDevAuthProvider(cfg.Auth.DevAuth)
		if err != nil {
			return nil, err
		}
		logger.WarnContext(ctx, "using in-memory development identity provider; do not use in production",
			"accounts", len(cfg.Auth.DevAuth.Accounts))
		return prov, nil

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
}

func buildDevAuthProvider(cfg config.DevAuthConfig) (*devauth.Provider, error) {
	seeded, err := cfg.ParseAccounts()
	if err != nil {
		return nil, fmt.Errorf("dev auth accounts: %w", err)
	}
	accounts := make([]devauth.Account, 0, len(seeded))
	for _, a := range seeded {
		accounts = append(accounts, devauth.Account{
			Email:    strings.TrimSpace(a.Email),
			Password: a.Password,
			Name:     strings.TrimSpace(a.Name),
			Role:     strings.TrimSpace(a.Role),
		})
	}
	prov, err := devauth.NewProvider(devauth.Config{
		Accounts:            accounts,
		RequireConfirmation: cfg.RequireConfirmation,
	})
	if err != nil {
		return nil, fmt.Errorf("dev auth provider: %w", err)
	}
	return prov, nil
}
