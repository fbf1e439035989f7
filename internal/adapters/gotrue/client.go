// Package gotrue implements ports.IdentityProvider against a GoTrue-compatible
// auth REST API (the hosted backend's /auth/v1 endpoints).
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/civicdesk/civicdesk/internal/adapters/providererr"
	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	"github.com/civicdesk/civicdesk/internal/ports"
	jwtv5 "github.com/golang-jwt/jwt/v5"
)

const maxResponseBody = 1 << 20

var _ ports.IdentityProvider = (*Client)(nil)

// Config holds the connection settings for the auth API.
type Config struct {
	// URL is the auth API root, e.g. https://project.supabase.co/auth/v1.
	URL string
	// APIKey is the public (anon) key sent as the apikey header.
	APIKey string
	// JWTSecret, when set, is used to verify HS256 access tokens. Without it the
	// token is only decoded to read its expiry.
	JWTSecret string
	// EmailRedirectTo is the default confirmation redirect for sign-ups.
	EmailRedirectTo string
	Timeout         time.Duration
	Client          *http.Client
}

// Client talks to the auth API.
type Client struct {
	baseURL         *url.URL
	apiKey          string
	jwtSecret       []byte
	emailRedirectTo string
	http            *http.Client
	now             func() time.Time
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if raw == "" {
		return nil, errors.New("gotrue url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid gotrue url %q", cfg.URL)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gotrue api key is required")
	}

	hc := cfg.Client
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	c := &Client{
		baseURL:         u,
		apiKey:          strings.TrimSpace(cfg.APIKey),
		emailRedirectTo: strings.TrimSpace(cfg.EmailRedirectTo),
		http:            hc,
		now:             time.Now,
	}
	if s := strings.TrimSpace(cfg.JWTSecret); s != "" {
		c.jwtSecret = []byte(s)
	}
	return c, nil
}

// userPayload is the user object returned by the auth API.
type userPayload struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// sessionPayload is returned by the token endpoint and by auto-confirmed sign-ups.
type sessionPayload struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int64        `json:"expires_in"`
	ExpiresAt   int64        `json:"expires_at"`
	User        *userPayload `json:"user"`
}

// errorPayload covers the error shapes the API has used across versions.
type errorPayload struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e errorPayload) providerError(status int) *providererr.ProviderError {
	return &providererr.ProviderError{
		Status:  status,
		Code:    firstNonEmpty(e.ErrorCode, e.Error),
		Message: firstNonEmpty(e.Msg, e.Message, e.ErrorDescription),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// SignUp creates an account. When the project requires email confirmation the API
// answers with the bare user and no token; the result then has ConfirmationRequired set.
func (c *Client) SignUp(ctx context.Context, in ports.SignUpInput) (ports.SignUpResult, error) {
	body := map[string]any{
		"email":    in.Email,
		"password": in.Password,
	}
	if len(in.Metadata) > 0 {
		body["data"] = in.Metadata
	}

	query := url.Values{}
	redirect := in.EmailRedirectTo
	if redirect == "" {
		redirect = c.emailRedirectTo
	}
	if redirect != "" {
		query.Set("redirect_to", redirect)
	}

	raw, err := c.do(ctx, http.MethodPost, "/signup", query, body, "")
	if err != nil {
		return ports.SignUpResult{}, err
	}

	// Auto-confirmed projects return a session, others the user object itself.
	var sess sessionPayload
	if err := json.Unmarshal(raw, &sess); err != nil {
		return ports.SignUpResult{}, providererr.ClassifyError(fmt.Errorf("decode signup response: %w", err))
	}
	if sess.AccessToken != "" {
		id, idErr := c.identityFromSession(sess)
		if idErr != nil {
			return ports.SignUpResult{}, idErr
		}
		return ports.SignUpResult{Identity: id}, nil
	}

	var user userPayload
	if err := json.Unmarshal(raw, &user); err != nil {
		return ports.SignUpResult{}, providererr.ClassifyError(fmt.Errorf("decode signup user: %w", err))
	}
	if user.ID == "" {
		return ports.SignUpResult{}, providererr.MissingUser()
	}
	return ports.SignUpResult{
		Identity:             identityFromUser(user),
		ConfirmationRequired: true,
	}, nil
}

// SignInWithPassword exchanges credentials for an access token via the password grant.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (domainauth.Identity, error) {
	raw, err := c.do(ctx, http.MethodPost, "/token", url.Values{"grant_type": {"password"}},
		map[string]string{"email": email, "password": password}, "")
	if err != nil {
		return domainauth.Identity{}, err
	}

	var sess sessionPayload
	if err := json.Unmarshal(raw, &sess); err != nil {
		return domainauth.Identity{}, providererr.ClassifyError(fmt.Errorf("decode token response: %w", err))
	}
	return c.identityFromSession(sess)
}

// GetUser returns the identity behind accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (domainauth.Identity, error) {
	if accessToken == "" {
		return domainauth.Identity{}, domainauth.NewError(domainauth.KindAuthenticationFailed, errors.New("access token is required"))
	}
	raw, err := c.do(ctx, http.MethodGet, "/user", nil, nil, accessToken)
	if err != nil {
		return domainauth.Identity{}, err
	}
	var user userPayload
	if err := json.Unmarshal(raw, &user); err != nil {
		return domainauth.Identity{}, providererr.ClassifyError(fmt.Errorf("decode user: %w", err))
	}
	if user.ID == "" {
		return domainauth.Identity{}, providererr.MissingUser()
	}

	id := identityFromUser(user)
	id.AccessToken = accessToken
	exp, err := c.tokenExpiry(accessToken)
	if err != nil {
		return domainauth.Identity{}, err
	}
	id.ExpiresAt = exp
	return id, nil
}

func (c *Client) identityFromSession(sess sessionPayload) (domainauth.Identity, error) {
	if sess.User == nil || sess.User.ID == "" {
		return domainauth.Identity{}, providererr.MissingUser()
	}
	id := identityFromUser(*sess.User)
	id.AccessToken = sess.AccessToken

	exp, err := c.tokenExpiry(sess.AccessToken)
	if err != nil {
		return domainauth.Identity{}, err
	}
	switch {
	case !exp.IsZero():
		id.ExpiresAt = exp
	case sess.ExpiresAt > 0:
		id.ExpiresAt = time.Unix(sess.ExpiresAt, 0)
	case sess.ExpiresIn > 0:
		id.ExpiresAt = c.now().Add(time.Duration(sess.ExpiresIn) * time.Second)
	}
	return id, nil
}

// tokenExpiry reads the exp claim. With a configured secret the signature is checked
// and a bad token is an authentication failure; otherwise an undecodable token just
// yields a zero expiry.
func (c *Client) tokenExpiry(token string) (time.Time, error) {
	if token == "" {
		return time.Time{}, nil
	}

	claims := jwtv5.MapClaims{}
	if c.jwtSecret != nil {
		_, err := jwtv5.ParseWithClaims(token, claims, func(*jwtv5.Token) (any, error) {
			return c.jwtSecret, nil
		}, jwtv5.WithValidMethods([]string{"HS256"}), jwtv5.WithTimeFunc(c.now))
		if err != nil {
			return time.Time{}, domainauth.NewError(domainauth.KindAuthenticationFailed, fmt.Errorf("verify access token: %w", err))
		}
	} else if _, _, err := jwtv5.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, nil //nolint:nilerr // opaque tokens carry no expiry
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, nil //nolint:nilerr // missing exp falls back to the response fields
	}
	return exp.Time, nil
}

func identityFromUser(u userPayload) domainauth.Identity {
	return domainauth.Identity{
		ID:       u.ID,
		Email:    u.Email,
		Metadata: u.UserMetadata,
	}
}

// do performs one API call and returns the success body. Non-2xx responses and
// transport failures are classified into the auth taxonomy.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, bearer string) ([]byte, error) {
	endpoint := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode gotrue request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create gotrue request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, providererr.ClassifyError(fmt.Errorf("gotrue request failed: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, providererr.ClassifyError(fmt.Errorf("read gotrue response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload errorPayload
		if jsonErr := json.Unmarshal(raw, &payload); jsonErr != nil {
			payload.Msg = strings.TrimSpace(string(raw))
		}
		return nil, providererr.ClassifyError(payload.providerError(resp.StatusCode))
	}
	return raw, nil
}
