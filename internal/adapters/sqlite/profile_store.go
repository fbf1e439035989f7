// Package sqlite implements the profile store over an embedded SQLite database
// for single-node and development deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	apperrors "github.com/civicdesk/civicdesk/internal/errors"
	"github.com/civicdesk/civicdesk/internal/migrate"
	"github.com/civicdesk/civicdesk/internal/ports"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const (
	profileColumns = "id, name, email, role, created_at, updated_at"

	defaultListLimit = 50
	maxListLimit     = 500
)

var _ ports.ProfileDirectory = (*ProfileStore)(nil)

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 { return value.UTC().UnixMilli() }

func fromMillis(value int64) time.Time { return time.UnixMilli(value).UTC() }

// ProfileStore implements ports.ProfileDirectory over SQLite.
type ProfileStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the embedded migrations.
func Open(ctx context.Context, path string) (*ProfileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	dsn := MemoryPath
	if path != MemoryPath {
		dsn = "file:" + filepath.Clean(path) +
			"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == MemoryPath {
		// Every new connection to :memory: is a fresh database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrate.RunDialect(ctx, db, migrate.SQLite); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return New(db), nil
}

// New wraps an already-migrated database handle.
func New(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (s *ProfileStore) WithClock(now func() time.Time) *ProfileStore {
	s.now = now
	return s
}

// DB returns the raw database handle.
func (s *ProfileStore) DB() *sql.DB { return s.db }

// Close releases the underlying database.
func (s *ProfileStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *ProfileStore) GetByID(ctx context.Context, id string) (domainauth.Profile, error) {
	if strings.TrimSpace(id) == "" {
		return domainauth.Profile{}, apperrors.Validation("profile id is required")
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM profiles WHERE id = ?", id)
	return scanProfile(row)
}

// Upsert inserts p or, on id conflict, refreshes email and updated_at only.
func (s *ProfileStore) Upsert(ctx context.Context, p domainauth.Profile) (domainauth.Profile, error) {
	if strings.TrimSpace(p.ID) == "" {
		return domainauth.Profile{}, apperrors.Validation("profile id is required")
	}
	now := toMillis(s.now())
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO profiles (id, name, email, role, created_at, updated_at)
		VALUES (?1, ?2, ?3, ?4, ?5, ?5)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			updated_at = excluded.updated_at
		RETURNING `+profileColumns,
		p.ID, p.Name, p.Email, string(p.Role), now,
	)
	return scanProfile(row)
}

func (s *ProfileStore) List(ctx context.Context, opts ports.ProfileListOptions) ([]domainauth.Profile, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset := max(opts.Offset, 0)

	var role any
	if opts.Role != nil {
		role = string(*opts.Role)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+` FROM profiles
		WHERE (?1 IS NULL OR role = ?1)
		ORDER BY created_at ASC, id ASC
		LIMIT ?2 OFFSET ?3`, role, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", mapError(err))
	}
	defer rows.Close()

	var out []domainauth.Profile
	for rows.Next() {
		p, scanErr := scanProfile(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", mapError(err))
	}
	return out, nil
}

func (s *ProfileStore) UpdateRole(ctx context.Context, id string, role domainauth.Role) (domainauth.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		"UPDATE profiles SET role = ?2, updated_at = ?3 WHERE id = ?1 RETURNING "+profileColumns,
		id, string(role), toMillis(s.now()))
	return scanProfile(row)
}

func (s *ProfileStore) UpdateName(ctx context.Context, id, name string) (domainauth.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		"UPDATE profiles SET name = ?2, updated_at = ?3 WHERE id = ?1 RETURNING "+profileColumns,
		id, strings.TrimSpace(name), toMillis(s.now()))
	return scanProfile(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (domainauth.Profile, error) {
	var (
		p                    domainauth.Profile
		role                 string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &role, &createdAt, &updatedAt); err != nil {
		return domainauth.Profile{}, mapError(err)
	}
	p.Role = domainauth.Role(role)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}

// mapError translates driver errors into AppError codes, mirroring the Postgres mapping.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "profile not found")
	}

	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return apperrors.MapDBError(err)
	}
	switch sqliteErr.Code() & 0xff {
	case sqlite3.SQLITE_AUTH, sqlite3.SQLITE_PERM, sqlite3.SQLITE_READONLY:
		return apperrors.Wrap(err, apperrors.ErrCodeForbidden, "Access to profiles was denied.")
	case sqlite3.SQLITE_CONSTRAINT:
		return apperrors.Wrap(err, apperrors.ErrCodeConflict, "This value already exists. Please choose a different one.")
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_CANTOPEN:
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "The database is unavailable. Please try again.")
	default:
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "A database error occurred. Please try again.")
	}
}
