package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	"github.com/civicdesk/civicdesk/internal/service"
)

// ProfileServiceInterface defines the profile operations used by the handlers.
type ProfileServiceInterface interface {
	Get(ctx context.Context, id string) (domainauth.Profile, error)
	List(ctx context.Context, in service.ListProfilesInput) ([]domainauth.Profile, error)
	SetRole(ctx context.Context, id, role string) (domainauth.Profile, error)
	Rename(ctx context.Context, id, name string) (domainauth.Profile, error)
}

const (
	defaultProfilePage = 50
	maxProfilePage     = 500
)

// ProfileHandlers serves self-service and admin profile endpoints.
type ProfileHandlers struct {
	Svc    ProfileServiceInterface
	Logger *slog.Logger
}

func (h *ProfileHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Me returns the caller's profile.
// GET /api/profile.
func (h *ProfileHandlers) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := GetUserSessionFromContext(r.Context())
	if !ok {
		writeAuthRequired(w)
		return
	}
	p, err := h.Svc.Get(r.Context(), sess.IdentityID)
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

type updateMeRequest struct {
	Name string `json:"name"`
}

// UpdateMe lets the owner change their display name.
// PATCH /api/profile.
func (h *ProfileHandlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := GetUserSessionFromContext(r.Context())
	if !ok {
		writeAuthRequired(w)
		return
	}
	var req updateMeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	p, err := h.Svc.Rename(r.Context(), sess.IdentityID, req.Name)
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

type profileListResponse struct {
	Profiles []domainauth.Profile `json:"profiles"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
}

// List returns a page of profiles, optionally filtered by role.
// GET /api/admin/profiles?role=&limit=&offset=.
func (h *ProfileHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, defaultProfilePage, maxProfilePage)
	out, err := h.Svc.List(r.Context(), service.ListProfilesInput{
		Role:   r.URL.Query().Get("role"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	if out == nil {
		out = []domainauth.Profile{}
	}
	WriteJSON(w, http.StatusOK, profileListResponse{Profiles: out, Limit: limit, Offset: offset})
}

type updateProfileRequest struct {
	Role *string `json:"role"`
	Name *string `json:"name"`
}

// Update changes another user's role and/or name.
// PATCH /api/admin/profiles/{id}.
func (h *ProfileHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req updateProfileRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Role == nil && req.Name == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     errors.New("At least one field must be updated."),
		})
		return
	}

	var (
		p   domainauth.Profile
		err error
	)
	if req.Name != nil {
		if p, err = h.Svc.Rename(r.Context(), id, *req.Name); err != nil {
			writeServiceError(w, r, h.logger(), err)
			return
		}
	}
	if req.Role != nil {
		if p, err = h.Svc.SetRole(r.Context(), id, *req.Role); err != nil {
			writeServiceError(w, r, h.logger(), err)
			return
		}
	}
	WriteJSON(w, http.StatusOK, p)
}

type landingResponse struct {
	Greeting string          `json:"greeting"`
	Role     domainauth.Role `json:"role"`
	Path     string          `json:"path"`
}

var landingTitles = map[domainauth.Role]string{ //nolint:gochecknoglobals // read-only lookup table
	domainauth.RoleCitizen: "Citizen dashboard",
	domainauth.RoleOfficer: "Officer dashboard",
	domainauth.RoleAdmin:   "Admin dashboard",
}

// landingHandler greets the signed-in user on the landing page for role.
func landingHandler(role domainauth.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := GetUserSessionFromContext(r.Context())
		if !ok {
			writeAuthRequired(w)
			return
		}
		name := sess.Name
		if name == "" {
			name = sess.Email
		}
		WriteJSON(w, http.StatusOK, landingResponse{
			Greeting: landingTitles[role] + ": welcome, " + name + ".",
			Role:     role,
			Path:     r.URL.Path,
		})
	}
}
