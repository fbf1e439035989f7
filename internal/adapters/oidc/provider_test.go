package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	"github.com/civicdesk/civicdesk/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// newTestIdP serves discovery, a password-grant token endpoint and UserInfo.
func newTestIdP(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		doc := DiscoveryDocument{
			Issuer:                srv.URL,
			AuthorizationEndpoint: srv.URL + "/auth",
			TokenEndpoint:         srv.URL + "/token",
			UserinfoEndpoint:      srv.URL + "/userinfo",
			JwksURI:               srv.URL + "/jwks",
		}
		_ = json.NewEncoder(w).Encode(doc)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		switch r.PostForm.Get("username") {
		case "ana@example.com":
			if r.PostForm.Get("password") != "s3cret!" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid user credentials"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"at-ana","token_type":"Bearer","expires_in":300}`))
		case "new@example.com":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Account is not fully set up"}`))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"temporarily_unavailable"}`))
		}
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-ana" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"u-ana","email":"ana@example.com","name":"Ana","realm_access":{"roles":["officer"]}}`))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(t *testing.T, srv *httptest.Server) *Provider {
	t.Helper()
	p, err := NewProvider(context.Background(), ProviderConfig{
		ClientID:     "civicdesk",
		ClientSecret: "secret",
		Scope:        "profile email",
		DiscoveryURL: srv.URL + "/.well-known/openid-configuration",
		HTTPClient:   srv.Client(),
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_Success(t *testing.T) {
	srv := newTestIdP(t)
	p := newTestProvider(t, srv)
	assert.Equal(t, srv.URL+"/token", p.config.Endpoint.TokenURL)
	assert.Equal(t, []string{"profile", "email"}, p.config.Scopes)
	assert.False(t, p.hasOpenIDScope())
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config ProviderConfig
		errMsg string
	}{
		{name: "missing client ID", config: ProviderConfig{DiscoveryURL: "http://example.com"}, errMsg: "client ID is required"},
		{name: "missing discovery URL", config: ProviderConfig{ClientID: "client"}, errMsg: "discovery URL is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSignInWithPassword(t *testing.T) {
	p := newTestProvider(t, newTestIdP(t))
	ctx := context.Background()

	t.Run("success fills identity from user info", func(t *testing.T) {
		id, err := p.SignInWithPassword(ctx, "ana@example.com", "s3cret!")
		require.NoError(t, err)
		assert.Equal(t, "u-ana", id.ID)
		assert.Equal(t, "ana@example.com", id.Email)
		assert.Equal(t, "at-ana", id.AccessToken)
		assert.Equal(t, "Ana", id.Metadata["name"])
		assert.False(t, id.ExpiresAt.IsZero())
	})

	tests := []struct {
		name     string
		email    string
		password string
		want     *domainauth.Error
	}{
		{name: "wrong password", email: "ana@example.com", password: "nope", want: domainauth.ErrInvalidCredentials},
		{name: "required actions pending", email: "new@example.com", password: "x", want: domainauth.ErrEmailUnconfirmed},
		{name: "throttled", email: "bot@example.com", password: "x", want: domainauth.ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.SignInWithPassword(ctx, tt.email, tt.password)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGetUser(t *testing.T) {
	p := newTestProvider(t, newTestIdP(t))

	id, err := p.GetUser(context.Background(), "at-ana")
	require.NoError(t, err)
	assert.Equal(t, "u-ana", id.ID)

	_, err = p.GetUser(context.Background(), "stale")
	assert.ErrorIs(t, err, domainauth.ErrAuthenticationFailed)
}

func TestSignUpUnsupported(t *testing.T) {
	p := newTestProvider(t, newTestIdP(t))
	_, err := p.SignUp(context.Background(), ports.SignUpInput{Email: "x@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, domainauth.ErrAuthenticationFailed)
	assert.ErrorIs(t, err, ErrSignUpUnsupported)
}

func TestTokenError(t *testing.T) {
	re := &oauth2.RetrieveError{
		Response:         &http.Response{StatusCode: http.StatusUnauthorized},
		ErrorCode:        "invalid_grant",
		ErrorDescription: "Invalid user credentials",
	}
	err := tokenError(re)
	assert.EqualError(t, err, "Invalid user credentials")
}

func TestGetIDTokenFromToken(t *testing.T) {
	_, err := getIDTokenFromToken(nil)
	require.Error(t, err)

	tok := (&oauth2.Token{AccessToken: "a"}).WithExtra(map[string]any{"id_token": "raw"})
	raw, err := getIDTokenFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "raw", raw)
}

func TestMergeClaims(t *testing.T) {
	got := mergeClaims(map[string]any{"sub": "a"}, map[string]any{"sub": "b", "email": "e@x"})
	assert.Equal(t, map[string]any{"sub": "a", "email": "e@x"}, got)
}
