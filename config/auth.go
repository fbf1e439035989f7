package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AuthMode selects the identity provider adapter.
type AuthMode string

const (
	// AuthModeGoTrue talks to a GoTrue-compatible auth REST API.
	AuthModeGoTrue AuthMode = "gotrue"
	// AuthModeOIDC uses the OAuth2 password grant against an OIDC provider.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeMock uses in-memory development accounts (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "gotrue", "oidc", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: gotrue, oidc, mock)", v)
	}
}

// RoleMatch controls how route guards compare a session role to the required role.
type RoleMatch string

const (
	// RoleMatchExact requires byte-for-byte equality.
	RoleMatchExact RoleMatch = "exact"
	// RoleMatchFold compares case-insensitively, like the role router.
	RoleMatchFold RoleMatch = "fold"
)

// UnmarshalText implements encoding.TextUnmarshaler for RoleMatch.
func (m *RoleMatch) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "exact", "fold":
		*m = RoleMatch(v)
		return nil
	default:
		return fmt.Errorf("invalid RoleMatch: %q (valid options: exact, fold)", v)
	}
}

// GoTrueConfig points at a GoTrue-compatible API root such as https://<project>.supabase.co/auth/v1.
type GoTrueConfig struct {
	URL    string `env:"URL"`
	APIKey string `env:"API_KEY"`
	// JWTSecret enables HS256 verification of issued access tokens when set.
	JWTSecret       string        `env:"JWT_SECRET"`
	EmailRedirectTo string        `env:"EMAIL_REDIRECT_TO"`
	Timeout         time.Duration `env:"TIMEOUT"           envDefault:"10s"`
}

// OIDCConfig contains OAuth2/OIDC password-grant configuration.
type OIDCConfig struct {
	ClientID     string        `env:"CLIENT_ID"     envDefault:"civicdesk"`
	ClientSecret string        `env:"CLIENT_SECRET"`
	Scope        string        `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string        `env:"DISCOVERY_URL"`
	Timeout      time.Duration `env:"TIMEOUT"       envDefault:"10s"`
}

// DevAccount is one seeded development login.
type DevAccount struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// DevAuthConfig seeds the in-memory provider used when AUTH_MODE=mock.
// Accounts are "email:password:name:role" entries separated by ";".
type DevAuthConfig struct {
	Accounts            []string `env:"ACCOUNTS"             envDefault:"citizen@example.com:password:Casey Citizen:citizen;officer@example.com:password:Olive Officer:officer;admin@example.com:password:Ada Admin:admin" envSeparator:";"`
	RequireConfirmation bool     `env:"REQUIRE_CONFIRMATION" envDefault:"false"`
}

// ParseAccounts decodes Accounts. Name and role may be empty.
func (d DevAuthConfig) ParseAccounts() ([]DevAccount, error) {
	out := make([]DevAccount, 0, len(d.Accounts))
	for _, raw := range d.Accounts {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.SplitN(raw, ":", 4)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid dev account %q (want email:password[:name[:role]])", raw)
		}
		acct := DevAccount{Email: parts[0], Password: parts[1]}
		if len(parts) > 2 {
			acct.Name = parts[2]
		}
		if len(parts) > 3 {
			acct.Role = parts[3]
		}
		out = append(out, acct)
	}
	return out, nil
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"gotrue"`

	GoTrue  GoTrueConfig  `envPrefix:"GOTRUE_"`
	OIDC    OIDCConfig    `envPrefix:"OIDC_"`
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// MetadataNameExpr and MetadataRoleExpr are JMESPath expressions evaluated
	// against the identity metadata when a profile has to be created.
	MetadataNameExpr string `env:"AUTH_METADATA_NAME_EXPR" envDefault:"name"`
	MetadataRoleExpr string `env:"AUTH_METADATA_ROLE_EXPR" envDefault:"role"`

	// SessionTTL caps session lifetime; the token expiry wins when earlier.
	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" envDefault:"8h"`

	RoleMatch RoleMatch `env:"AUTH_ROLE_MATCH" envDefault:"exact"`

	// RollbackOnUnknownRole deletes the freshly written session when routing fails.
	RollbackOnUnknownRole bool `env:"AUTH_ROLLBACK_ON_UNKNOWN_ROLE" envDefault:"false"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	a.GoTrue.URL = strings.TrimRight(strings.TrimSpace(a.GoTrue.URL), "/")
	if a.GoTrue.Timeout <= 0 {
		a.GoTrue.Timeout = 10 * time.Second
	}
	if a.OIDC.Timeout <= 0 {
		a.OIDC.Timeout = 10 * time.Second
	}
	if strings.TrimSpace(a.MetadataNameExpr) == "" {
		a.MetadataNameExpr = "name"
	}
	if strings.TrimSpace(a.MetadataRoleExpr) == "" {
		a.MetadataRoleExpr = "role"
	}
	if a.SessionTTL < time.Minute {
		a.SessionTTL = time.Minute
	}
	if a.RoleMatch == "" {
		a.RoleMatch = RoleMatchExact
	}
}

// Validate checks that the selected mode has what it needs.
func (a *AuthConfig) Validate() error {
	switch a.Mode {
	case AuthModeGoTrue:
		if a.GoTrue.URL == "" {
			return errors.New("GOTRUE_URL is required when AUTH_MODE=gotrue")
		}
		if a.GoTrue.APIKey == "" {
			return errors.New("GOTRUE_API_KEY is required when AUTH_MODE=gotrue")
		}
	case AuthModeOIDC:
		if a.OIDC.DiscoveryURL == "" {
			return errors.New("OIDC_DISCOVERY_URL is required when AUTH_MODE=oidc")
		}
	case AuthModeMock:
		if _, err := a.DevAuth.ParseAccounts(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported auth mode %q", a.Mode)
	}
	return nil
}
