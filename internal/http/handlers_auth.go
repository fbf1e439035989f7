package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	"github.com/civicdesk/civicdesk/internal/service"
)

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
	Register(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error)
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	Logout(ctx context.Context, sessionID string) error
	Route(role domainauth.Role) (service.Destination, error)
}

// CookieConfig controls the attributes of the session cookie.
type CookieConfig struct {
	Domain string
	// Secure forces the Secure attribute; TLS and X-Forwarded-Proto=https also enable it.
	Secure bool
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc    AuthServiceInterface
	Cookie CookieConfig
	Logger *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type userView struct {
	ID    string          `json:"id"`
	Email string          `json:"email"`
	Name  string          `json:"name,omitempty"`
	Role  domainauth.Role `json:"role,omitempty"`
}

func sessionUser(s domainauth.Session) userView {
	return userView{ID: s.IdentityID, Email: s.Email, Name: s.Name, Role: s.Role}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User          userView            `json:"user"`
	Destination   service.Destination `json:"destination"`
	ProfileSource string              `json:"profile_source"`
	ExpiresAt     time.Time           `json:"expires_at"`
}

// Login authenticates with email and password and sets the session cookie.
// POST /auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.Svc.Login(r.Context(), service.LoginInput{
		Email:             req.Email,
		Password:          req.Password,
		PreviousSessionID: h.sessionID(r),
	})
	h.applySession(w, r, res)
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}

	WriteJSON(w, http.StatusOK, loginResponse{
		User:          sessionUser(res.Session),
		Destination:   res.Destination,
		ProfileSource: string(res.Resolution.Source),
		ExpiresAt:     res.Session.ExpiresAt,
	})
}

type registerRequest struct {
	Email           string         `json:"email"`
	Password        string         `json:"password"`
	Name            string         `json:"name"`
	Role            string         `json:"role"`
	Metadata        map[string]any `json:"metadata"`
	EmailRedirectTo string         `json:"email_redirect_to"`
}

type registerResponse struct {
	User                 userView             `json:"user"`
	ConfirmationRequired bool                 `json:"confirmation_required"`
	ProfileSource        string               `json:"profile_source"`
	Destination          *service.Destination `json:"destination,omitempty"`
}

// Register creates an account. When the provider issues a token right away the
// session cookie is set as for Login.
// POST /auth/register.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.Svc.Register(r.Context(), service.RegisterInput{
		Email:             req.Email,
		Password:          req.Password,
		Name:              req.Name,
		Role:              req.Role,
		Metadata:          req.Metadata,
		EmailRedirectTo:   req.EmailRedirectTo,
		PreviousSessionID: h.sessionID(r),
	})
	if res != nil {
		h.applySession(w, r, res.Login)
	}
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}

	out := registerResponse{
		User: userView{
			ID:    res.Identity.ID,
			Email: res.Identity.Email,
			Name:  res.Resolution.Profile.Name,
			Role:  res.Resolution.Profile.Role,
		},
		ConfirmationRequired: res.ConfirmationRequired,
		ProfileSource:        string(res.Resolution.Source),
	}
	if res.Login != nil {
		out.User = sessionUser(res.Login.Session)
		dest := res.Login.Destination
		out.Destination = &dest
	}
	WriteJSON(w, http.StatusCreated, out)
}

// Logout revokes the server-side session and clears the cookie. It always succeeds.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if id := h.sessionID(r); id != "" {
		if err := h.Svc.Logout(r.Context(), id); err != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", err)
		}
	}

	h.clearCookie(w, r, sessionCookieName)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// Status returns the current authentication status.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	id := h.sessionID(r)
	if id == "" {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	session, err := h.Svc.GetSession(r.Context(), id)
	if err != nil {
		// Session is invalid or expired, clear the cookie
		h.clearCookie(w, r, sessionCookieName)
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	out := map[string]any{
		"authenticated": true,
		"user":          sessionUser(*session),
		"expires_at":    session.ExpiresAt,
	}
	if dest, routeErr := h.Svc.Route(session.Role); routeErr == nil {
		out["destination"] = dest
	}
	WriteJSON(w, http.StatusOK, out)
}

// applySession mirrors the server-side session into the cookie. A result whose
// session was rolled back clears any cookie the client still holds.
func (h *AuthHandlers) applySession(w http.ResponseWriter, r *http.Request, res *service.LoginResult) {
	switch {
	case res == nil:
	case res.SessionWritten:
		h.setSessionCookie(w, r, res.Session)
	case h.sessionID(r) != "":
		h.clearCookie(w, r, sessionCookieName)
	}
}

func (h *AuthHandlers) sessionID(r *http.Request) string {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *AuthHandlers) secure(r *http.Request) bool {
	return h.Cookie.Secure || r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// setSessionCookie writes the session cookie based on the session's expiry.
func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    s.ID,
		Path:     "/",
		Domain:   h.Cookie.Domain,
		HttpOnly: true,
		Secure:   h.secure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// clearCookie clears a cookie by setting it to expire immediately.
// It mirrors the attributes used when setting cookies so browsers match it on deletion.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.Cookie.Domain,
		HttpOnly: true,
		Secure:   h.secure(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}
