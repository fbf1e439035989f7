package bootstrap

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/civicdesk/civicdesk/config"
	"github.com/civicdesk/civicdesk/internal/adapters/devauth"
	"github.com/civicdesk/civicdesk/internal/adapters/gotrue"
	"github.com/civicdesk/civicdesk/internal/adapters/sqlite"
	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	authmocks "github.com/civicdesk/civicdesk/internal/mocks/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadConfig_MockMode(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AUTH_MODE", "mock")
	t.Setenv("AUTH_ROLE_MATCH", "fold")
	t.Setenv("PROFILE_STORE", "sqlite")
	t.Setenv("APP_COOKIE_DOMAIN", ".City.Example.org")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.AuthModeMock, cfg.Auth.Mode)
	assert.Equal(t, config.RoleMatchFold, cfg.Auth.RoleMatch)
	assert.Equal(t, config.ProfileStoreSQLite, cfg.Profiles.Store)
	assert.Equal(t, "city.example.org", cfg.HTTP.CookieDomain)
	assert.Equal(t, 8*time.Hour, cfg.Auth.SessionTTL)
}

func TestLoadConfig_RejectsIncompleteGoTrue(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AUTH_MODE", "gotrue")
	t.Setenv("GOTRUE_URL", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOTRUE_URL")
}

func TestConfigureLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureLogger(&buf, config.AppConfig{LogLevel: "warn"})
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger = ConfigureLogger(&buf, config.AppConfig{LogLevel: "debug", IsDev: true})
	logger.Debug("dev line")
	assert.Contains(t, buf.String(), "msg=\"dev line\"")
	slog.SetDefault(discardLogger())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestBuildIdentityProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("mock", func(t *testing.T) {
		prov, err := BuildIdentityProvider(ctx, ProviderConfig{
			Auth: config.AuthConfig{
				Mode:    config.AuthModeMock,
				DevAuth: config.DevAuthConfig{Accounts: []string{"a@b.com:secret123:Ann:officer"}},
			},
			Logger: discardLogger(),
		})
		require.NoError(t, err)
		assert.IsType(t, &devauth.Provider{}, prov)
	})

	t.Run("mock with bad account", func(t *testing.T) {
		_, err := BuildIdentityProvider(ctx, ProviderConfig{
			Auth: config.AuthConfig{Mode: config.AuthModeMock, DevAuth: config.DevAuthConfig{Accounts: []string{"nopassword"}}},
		})
		require.Error(t, err)
	})

	t.Run("gotrue", func(t *testing.T) {
		prov, err := BuildIdentityProvider(ctx, ProviderConfig{
			Auth: config.AuthConfig{
				Mode:   config.AuthModeGoTrue,
				GoTrue: config.GoTrueConfig{URL: "https://project.example.org/auth/v1", APIKey: "anon"},
			},
			EmailRedirectTo: "https://app.example.org",
			Logger:          discardLogger(),
		})
		require.NoError(t, err)
		assert.IsType(t, &gotrue.Client{}, prov)
	})

	t.Run("gotrue missing key", func(t *testing.T) {
		_, err := BuildIdentityProvider(ctx, ProviderConfig{
			Auth: config.AuthConfig{Mode: config.AuthModeGoTrue, GoTrue: config.GoTrueConfig{URL: "https://x.example.org"}},
		})
		require.Error(t, err)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := BuildIdentityProvider(ctx, ProviderConfig{Auth: config.AuthConfig{Mode: "saml"}})
		require.Error(t, err)
	})
}

func TestOpenProfileStore_SQLiteMemory(t *testing.T) {
	cfg := &config.AppConfig{Profiles: config.ProfilesConfig{Store: config.ProfileStoreSQLite, SQLitePath: sqlite.MemoryPath}}
	backend, err := OpenProfileStore(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	assert.Equal(t, config.ProfileStoreSQLite, backend.Kind)
	p, err := backend.Store.Upsert(context.Background(), domainauth.Profile{ID: "u1", Email: "a@b.com", Role: domainauth.RoleCitizen})
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
}

func TestOpenProfileStore_Unsupported(t *testing.T) {
	_, err := OpenProfileStore(context.Background(), &config.AppConfig{Profiles: config.ProfilesConfig{Store: "mongo"}}, nil)
	require.Error(t, err)
	_, err = OpenProfileStore(context.Background(), nil, nil)
	require.Error(t, err)
}

func testAppConfig() *config.AppConfig {
	return &config.AppConfig{
		IsDev: true,
		Auth: config.AuthConfig{
			MetadataNameExpr: "name",
			MetadataRoleExpr: "role",
			SessionTTL:       time.Hour,
			RoleMatch:        config.RoleMatchExact,
		},
	}
}

func TestNewServices(t *testing.T) {
	cfg := testAppConfig()
	svcs, err := NewServices(ServiceDeps{
		Config:   cfg,
		Provider: authmocks.NewMockIdentityProvider(),
		Profiles: authmocks.NewMemoryProfileStore(),
		Sessions: authmocks.NewMemorySessionStore(),
		Logger:   discardLogger(),
	})
	require.NoError(t, err)
	require.NotNil(t, svcs.Auth)
	require.NotNil(t, svcs.Profiles)
	assert.False(t, svcs.Guard.IsAuthorized(&domainauth.Session{Role: "Admin"}, domainauth.RoleAdmin))

	cfg.Auth.RoleMatch = config.RoleMatchFold
	svcs, err = NewServices(ServiceDeps{
		Config:   cfg,
		Provider: authmocks.NewMockIdentityProvider(),
		Profiles: authmocks.NewMemoryProfileStore(),
		Sessions: authmocks.NewMemorySessionStore(),
	})
	require.NoError(t, err)
	assert.True(t, svcs.Guard.IsAuthorized(&domainauth.Session{Role: "Admin"}, domainauth.RoleAdmin))
}

func TestNewServices_Errors(t *testing.T) {
	_, err := NewServices(ServiceDeps{})
	require.Error(t, err)

	cfg := testAppConfig()
	_, err = NewServices(ServiceDeps{Config: cfg})
	require.Error(t, err)

	cfg.Auth.MetadataNameExpr = "name[["
	_, err = NewServices(ServiceDeps{
		Config:   cfg,
		Provider: authmocks.NewMockIdentityProvider(),
		Profiles: authmocks.NewMemoryProfileStore(),
		Sessions: authmocks.NewMemorySessionStore(),
	})
	require.Error(t, err)
}

func TestBuildMetrics_Disabled(t *testing.T) {
	assert.Nil(t, BuildMetrics(discardLogger(), config.ObservabilityMetricsConfig{}))
}

func TestNewHTTPServer_LoginFlow(t *testing.T) {
	cfg := testAppConfig()
	svcs, err := NewServices(ServiceDeps{
		Config:   cfg,
		Provider: authmocks.NewMockIdentityProvider(),
		Profiles: authmocks.NewMemoryProfileStore(),
		Sessions: authmocks.NewMemorySessionStore(),
		Logger:   discardLogger(),
	})
	require.NoError(t, err)

	srv := NewHTTPServer(HTTPServerConfig{Config: cfg, Services: svcs, Logger: discardLogger()})
	assert.Equal(t, ":8080", srv.Addr)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		bytes.NewBufferString(`{"email":"mock.user@example.com","password":"secret123"}`))
	srv.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"path":"/citizen"`)
}

func TestServeHTTP_StopsOnCancel(t *testing.T) {
	srv := &http.Server{
		Addr:              "127.0.0.1:0",
		Handler:           http.NotFoundHandler(),
		ReadHeaderTimeout: time.Second,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ServeHTTP(ctx, ServeConfig{Server: srv, ShutdownTimeout: time.Second, Logger: discardLogger()})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ServeHTTP did not return after cancel")
	}
}

func TestServeHTTP_RequiresServer(t *testing.T) {
	require.Error(t, ServeHTTP(context.Background(), ServeConfig{}))
}
