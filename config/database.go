package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ProfileStoreKind selects the profile table backend.
type ProfileStoreKind string

const (
	ProfileStorePostgres ProfileStoreKind = "postgres"
	ProfileStoreSQLite   ProfileStoreKind = "sqlite"
)

// UnmarshalText implements encoding.TextUnmarshaler for ProfileStoreKind.
func (k *ProfileStoreKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "postgres", "sqlite":
		*k = ProfileStoreKind(v)
		return nil
	default:
		return fmt.Errorf("invalid ProfileStoreKind: %q (valid options: postgres, sqlite)", v)
	}
}

// ProfilesConfig selects where profiles live.
type ProfilesConfig struct {
	Store ProfileStoreKind `env:"PROFILE_STORE" envDefault:"postgres"`
	// SQLitePath is a file path or ":memory:".
	SQLitePath string `env:"SQLITE_PATH" envDefault:"civicdesk.db"`
}

// Sanitize applies guardrails to profile store configuration values.
func (p *ProfilesConfig) Sanitize() {
	p.SQLitePath = strings.TrimSpace(p.SQLitePath)
	if p.SQLitePath == "" {
		p.SQLitePath = "civicdesk.db"
	}
}

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"civicdesk"`
	Password string `env:"PASSWORD" envDefault:"civicdesk"`
	Name     string `env:"NAME"     envDefault:"civicdesk"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// DSN renders a pgx connection URL.
func (c DBConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}

// RedisConfig contains Redis configuration for the session store.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
	// SessionPrefix namespaces session keys.
	SessionPrefix string `env:"SESSION_PREFIX" envDefault:"session:"`
}
