package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	apperrors "github.com/civicdesk/civicdesk/internal/errors"
	"github.com/civicdesk/civicdesk/internal/ports"
)

const (
	maxProfileNameLen = 120
	maxProfilePage    = 500
)

// ProfileServiceOptions groups dependencies for ProfileService.
type ProfileServiceOptions struct {
	Directory ports.ProfileDirectory // Required
	Logger    *slog.Logger           // Optional
}

// ProfileService backs profile self-service and admin user management.
type ProfileService struct {
	dir    ports.ProfileDirectory
	logger *slog.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(opts ProfileServiceOptions) *ProfileService {
	if opts.Directory == nil {
		panic("ProfileService requires a Directory")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileService{dir: opts.Directory, logger: logger.With("component", "profile_service")}
}

// Get returns the profile for id.
func (s *ProfileService) Get(ctx context.Context, id string) (domainauth.Profile, error) {
	if strings.TrimSpace(id) == "" {
		return domainauth.Profile{}, apperrors.ValidationField("id", "Profile id is required.")
	}
	p, err := s.dir.GetByID(ctx, id)
	if err != nil {
		return domainauth.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// ListProfilesInput filters the admin listing. Role is matched exactly when set.
type ListProfilesInput struct {
	Role   string
	Limit  int
	Offset int
}

// List returns a page of profiles.
func (s *ProfileService) List(ctx context.Context, in ListProfilesInput) ([]domainauth.Profile, error) {
	if in.Limit < 0 || in.Limit > maxProfilePage {
		return nil, apperrors.ValidationField("limit", fmt.Sprintf("Limit must be between 0 and %d.", maxProfilePage))
	}
	if in.Offset < 0 {
		return nil, apperrors.ValidationField("offset", "Offset cannot be negative.")
	}
	opts := ports.ProfileListOptions{Limit: in.Limit, Offset: in.Offset}
	if in.Role != "" {
		role, ok := domainauth.ParseRole(in.Role)
		if !ok {
			return nil, apperrors.ValidationField("role", "Role must be one of citizen, officer, admin.")
		}
		opts.Role = &role
	}
	out, err := s.dir.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return out, nil
}

// SetRole changes a user's role. Existing sessions keep their role until the next login.
func (s *ProfileService) SetRole(ctx context.Context, id, role string) (domainauth.Profile, error) {
	r, ok := domainauth.ParseRole(role)
	if !ok {
		return domainauth.Profile{}, apperrors.ValidationField("role", "Role must be one of citizen, officer, admin.")
	}
	p, err := s.dir.UpdateRole(ctx, id, r)
	if err != nil {
		return domainauth.Profile{}, fmt.Errorf("update role: %w", err)
	}
	s.logger.InfoContext(ctx, "profile role changed", "profile_id", id, "role", string(r))
	return p, nil
}

// Rename changes the display name of a profile.
func (s *ProfileService) Rename(ctx context.Context, id, name string) (domainauth.Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domainauth.Profile{}, apperrors.ValidationField("name", "Name is required.")
	}
	if utf8.RuneCountInString(name) > maxProfileNameLen {
		return domainauth.Profile{}, apperrors.ValidationField("name",
			fmt.Sprintf("Name must be at most %d characters.", maxProfileNameLen))
	}
	p, err := s.dir.UpdateName(ctx, id, name)
	if err != nil {
		return domainauth.Profile{}, fmt.Errorf("update name: %w", err)
	}
	return p, nil
}
