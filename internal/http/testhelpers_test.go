package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	authmocks "github.com/civicdesk/civicdesk/internal/mocks/auth"
	"github.com/civicdesk/civicdesk/internal/service"
	"github.com/stretchr/testify/require"
)

// stack wires the real services over in-memory stores behind NewRouter.
type stack struct {
	provider *authmocks.MockIdentityProvider
	profiles *authmocks.MemoryProfileStore
	sessions *authmocks.MemorySessionStore
	handler  http.Handler
}

type stackOptions struct {
	Seed     []domainauth.Profile
	Fold     bool
	Rollback bool
}

func newStack(t *testing.T, opts stackOptions) *stack {
	t.Helper()
	s := &stack{
		provider: authmocks.NewMockIdentityProvider(),
		profiles: authmocks.NewMemoryProfileStore(opts.Seed...),
		sessions: authmocks.NewMemorySessionStore(),
	}
	authSvc := service.NewAuthService(service.AuthServiceOptions{
		Provider: s.provider,
		Pipeline: service.AuthPipeline{
			Resolver: service.NewProfileResolver(service.ProfileResolverOptions{Store: s.profiles}),
			Sessions: service.NewSessionKeeper(service.SessionKeeperOptions{Store: s.sessions, TTL: time.Hour}),
		},
		Config: service.AuthServiceConfig{RollbackOnUnknownRole: opts.Rollback},
	})
	s.handler = NewRouter(RouterServices{
		Auth:     authSvc,
		Profiles: service.NewProfileService(service.ProfileServiceOptions{Directory: s.profiles}),
		Guard:    service.NewGuard(opts.Fold),
	})
	return s
}

func (s *stack) signInAs(id domainauth.Identity) {
	id.AccessToken = "tok-" + id.ID
	s.provider.DefaultIdentity = id
}

type call struct {
	Method string
	Path   string
	Body   any
	Cookie *http.Cookie
}

func (s *stack) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if c.Body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(c.Body))
	}
	req := httptest.NewRequest(c.Method, c.Path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.Cookie != nil {
		req.AddCookie(c.Cookie)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// login signs in through the HTTP surface and returns the session cookie.
func (s *stack) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := s.do(t, call{Method: http.MethodPost, Path: "/auth/login", Body: map[string]string{
		"email": s.provider.DefaultIdentity.Email, "password": "secret123",
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := findCookie(rec, sessionCookieName)
	require.NotNil(t, c)
	return c
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
