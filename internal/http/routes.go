package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	"github.com/civicdesk/civicdesk/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth     AuthServiceInterface
	Profiles ProfileServiceInterface
	// Guard authorizes role-gated routes against the session role.
	Guard  service.Guard
	Cookie CookieConfig
	Logger *slog.Logger // Optional
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	if services.Auth != nil {
		authHandlers := &AuthHandlers{Svc: services.Auth, Cookie: services.Cookie, Logger: logger}
		registerAuthRoutes(mux, authHandlers)
		registerLandingRoutes(mux, services)
	}
	if services.Auth != nil && services.Profiles != nil {
		registerProfileRoutes(mux, services, &ProfileHandlers{Svc: services.Profiles, Logger: logger})
	}

	return &notFoundHandler{mux: mux}
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/register", h.Register)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
}

// registerLandingRoutes wires one landing page per role router destination.
func registerLandingRoutes(mux *http.ServeMux, services RouterServices) {
	router := service.NewRoleRouter()
	for _, role := range domainauth.Roles() {
		dest, err := router.Route(role)
		if err != nil {
			continue
		}
		gate := RequireRole(services.Auth, services.Guard, role)
		mux.Handle("GET "+dest.Path, gate(landingHandler(role)))
	}
}

func registerProfileRoutes(mux *http.ServeMux, services RouterServices, h *ProfileHandlers) {
	authed := RequireAuth(services.Auth)
	mux.Handle("GET /api/profile", authed(http.HandlerFunc(h.Me)))
	mux.Handle("PATCH /api/profile", authed(http.HandlerFunc(h.UpdateMe)))

	admin := RequireRole(services.Auth, services.Guard, domainauth.RoleAdmin)
	mux.Handle("GET /api/admin/profiles", admin(http.HandlerFunc(h.List)))
	mux.Handle("PATCH /api/admin/profiles/{id}", admin(http.HandlerFunc(h.Update)))
}

// notFoundHandler wraps a ServeMux and renders unmatched routes as JSON errors.
type notFoundHandler struct {
	mux *http.ServeMux
}

func (h *notFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, pattern := h.mux.Handler(r)
	if pattern == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "not_found",
			Err:     errors.New("The requested resource was not found."),
		})
		return
	}
	h.mux.ServeHTTP(w, r)
}
