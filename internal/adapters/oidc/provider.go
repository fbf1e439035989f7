package oidc

// Package oidc authenticates email/password credentials against an OpenID Connect
// provider using the resource owner password grant (e.g. Keycloak direct access grants).

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/civicdesk/civicdesk/internal/adapters/providererr"
	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	"github.com/civicdesk/civicdesk/internal/ports"
	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// ErrSignUpUnsupported is the cause attached when registration is attempted against OIDC.
var ErrSignUpUnsupported = errors.New("sign-up is managed by the identity provider")

var _ ports.IdentityProvider = (*Provider)(nil)

// Provider implements ports.IdentityProvider using OIDC/OAuth2.
type Provider struct {
	config     *oauth2.Config
	httpClient *http.Client

	// go-oidc provider and verifier
	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	DiscoveryURL string
	HTTPClient   *http.Client // Optional, defaults to a 30s client
}

// DiscoveryDocument represents the OIDC discovery document.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
}

// NewProvider creates a new OIDC provider. Discovery runs once, here.
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	return &Provider{
		httpClient:   httpClient,
		oidcProvider: op,
		verifier:     op.Verifier(&gooidc.Config{ClientID: config.ClientID}),
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Scopes:       strings.Fields(config.Scope),
			Endpoint:     op.Endpoint(),
		},
	}, nil
}

// SignUp is not offered over OIDC; accounts are created in the identity provider.
func (p *Provider) SignUp(context.Context, ports.SignUpInput) (ports.SignUpResult, error) {
	return ports.SignUpResult{}, domainauth.NewError(domainauth.KindAuthenticationFailed, ErrSignUpUnsupported)
}

// SignInWithPassword runs the password grant and builds the identity from the
// id_token (when openid is requested) and the UserInfo endpoint.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (domainauth.Identity, error) {
	ctx = p.clientContext(ctx)
	token, err := p.config.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		return domainauth.Identity{}, providererr.ClassifyError(tokenError(err))
	}

	claims, err := p.idTokenClaims(ctx, token)
	if err != nil {
		return domainauth.Identity{}, providererr.ClassifyError(fmt.Errorf("extract id_token: %w", err))
	}
	if claimString(claims, "sub") == "" || claimString(claims, "email") == "" {
		ui, uiErr := p.userInfoClaims(ctx, token.AccessToken)
		if uiErr != nil {
			return domainauth.Identity{}, providererr.ClassifyError(fmt.Errorf("get user info: %w", uiErr))
		}
		claims = mergeClaims(claims, ui)
	}

	id := identityFromClaims(claims)
	if id.ID == "" {
		return domainauth.Identity{}, providererr.MissingUser()
	}
	id.AccessToken = token.AccessToken
	id.ExpiresAt = token.Expiry
	return id, nil
}

// GetUser resolves an access token through the UserInfo endpoint.
func (p *Provider) GetUser(ctx context.Context, accessToken string) (domainauth.Identity, error) {
	claims, err := p.userInfoClaims(p.clientContext(ctx), accessToken)
	if err != nil {
		return domainauth.Identity{}, providererr.ClassifyError(fmt.Errorf("get user info: %w", err))
	}
	id := identityFromClaims(claims)
	if id.ID == "" {
		return domainauth.Identity{}, providererr.MissingUser()
	}
	id.AccessToken = accessToken
	return id, nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// tokenError converts an oauth2 token endpoint failure into a provider error.
func tokenError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return fmt.Errorf("password grant: %w", err)
	}
	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	msg := re.ErrorDescription
	if msg == "" && re.ErrorCode == "" {
		msg = strings.TrimSpace(string(re.Body))
	}
	return &providererr.ProviderError{Status: status, Code: re.ErrorCode, Message: msg}
}

func (p *Provider) idTokenClaims(ctx context.Context, tok *oauth2.Token) (map[string]any, error) {
	if !p.hasOpenIDScope() {
		return map[string]any{}, nil
	}
	rawID, err := getIDTokenFromToken(tok)
	if err != nil {
		return nil, err
	}
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return nil, fmt.Errorf("verify id_token: %w", err)
	}
	claims := map[string]any{}
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return nil, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	return claims, nil
}

func (p *Provider) userInfoClaims(ctx context.Context, accessToken string) (map[string]any, error) {
	ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	claims := map[string]any{}
	if claimsErr := ui.Claims(&claims); claimsErr != nil {
		return nil, fmt.Errorf("decode user info: %w", claimsErr)
	}
	return claims, nil
}

// identityFromClaims maps standard claims; the full claim set becomes the metadata bag
// so name and role expressions can reach provider-specific shapes.
func identityFromClaims(claims map[string]any) domainauth.Identity {
	return domainauth.Identity{
		ID:       claimString(claims, "sub"),
		Email:    firstNonEmpty(claimString(claims, "email"), claimString(claims, "mail")),
		Metadata: claims,
	}
}

// mergeClaims returns base with any keys it lacks filled from extra.
func mergeClaims(base, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range base {
		out[k] = v
	}
	return out
}

func claimString(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// hasOpenIDScope reports whether the configured scopes include "openid".
func (p *Provider) hasOpenIDScope() bool {
	for _, sc := range p.config.Scopes {
		if sc == "openid" {
			return true
		}
	}
	return false
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	s, ok := tok.Extra("id_token").(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
