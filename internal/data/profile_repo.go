package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/civicdesk/civicdesk/internal/data/pgxutil"
	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	apperrors "github.com/civicdesk/civicdesk/internal/errors"
	"github.com/civicdesk/civicdesk/internal/ports"
	"github.com/jackc/pgx/v5"
)

const (
	profileColumns = "id, name, email, role, created_at, updated_at"

	defaultProfileListLimit = 50
	maxProfileListLimit     = 500
)

var _ ports.ProfileDirectory = (*ProfileRepo)(nil)

// ProfileRepo provides Postgres operations for the profiles table.
type ProfileRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewProfileRepo creates a new ProfileRepo with real time provider.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: RealTimeProvider{}}
}

// NewProfileRepoWithTimeProvider creates a new ProfileRepo with a custom time provider (useful for tests).
func NewProfileRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: tp}
}

// GetByID retrieves a profile by identity id.
func (r *ProfileRepo) GetByID(ctx context.Context, id string) (domainauth.Profile, error) {
	if strings.TrimSpace(id) == "" {
		return domainauth.Profile{}, apperrors.Validation("profile id is required")
	}
	return r.queryOne(ctx, "SELECT "+profileColumns+" FROM profiles WHERE id = $1", id)
}

// Upsert inserts p. When a row with the same id exists only email and updated_at are
// refreshed; name and role keep their stored values, so a role is persisted at most once.
func (r *ProfileRepo) Upsert(ctx context.Context, p domainauth.Profile) (domainauth.Profile, error) {
	if strings.TrimSpace(p.ID) == "" {
		return domainauth.Profile{}, apperrors.Validation("profile id is required")
	}
	now := r.timeProvider.Now().UTC()
	return r.queryOne(ctx, `
		INSERT INTO profiles (id, name, email, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			updated_at = EXCLUDED.updated_at
		RETURNING `+profileColumns,
		p.ID, p.Name, p.Email, string(p.Role), now,
	)
}

// List returns profiles ordered by creation time, optionally filtered by role.
func (r *ProfileRepo) List(ctx context.Context, opts ports.ProfileListOptions) ([]domainauth.Profile, error) {
	limit, offset := clampPage(opts.Limit, opts.Offset)

	query := "SELECT " + profileColumns + " FROM profiles"
	args := []any{}
	if opts.Role != nil {
		query += " WHERE role = $1"
		args = append(args, string(*opts.Role))
	}
	query += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	var out []domainauth.Profile
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[domainauth.Profile])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// UpdateRole overwrites the stored role. Callers validate the role.
func (r *ProfileRepo) UpdateRole(ctx context.Context, id string, role domainauth.Role) (domainauth.Profile, error) {
	return r.queryOne(ctx,
		"UPDATE profiles SET role = $2, updated_at = $3 WHERE id = $1 RETURNING "+profileColumns,
		id, string(role), r.timeProvider.Now().UTC(),
	)
}

// UpdateName overwrites the stored display name.
func (r *ProfileRepo) UpdateName(ctx context.Context, id, name string) (domainauth.Profile, error) {
	return r.queryOne(ctx,
		"UPDATE profiles SET name = $2, updated_at = $3 WHERE id = $1 RETURNING "+profileColumns,
		id, strings.TrimSpace(name), r.timeProvider.Now().UTC(),
	)
}

func (r *ProfileRepo) queryOne(ctx context.Context, query string, args ...any) (domainauth.Profile, error) {
	var out domainauth.Profile
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainauth.Profile])
		return err
	})
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsNotFound(mapped) {
			return domainauth.Profile{}, apperrors.Wrap(err, apperrors.ErrCodeNotFound, "profile not found")
		}
		var appErr *apperrors.AppError
		if errors.As(mapped, &appErr) {
			return domainauth.Profile{}, mapped
		}
		return domainauth.Profile{}, fmt.Errorf("profile query: %w", err)
	}
	return out, nil
}

// clampPage applies the default and maximum page sizes.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultProfileListLimit
	}
	return min(limit, maxProfileListLimit), max(offset, 0)
}
