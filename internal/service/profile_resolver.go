package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	apperrors "github.com/civicdesk/civicdesk/internal/errors"
	"github.com/civicdesk/civicdesk/internal/observability/metrics"
	"github.com/civicdesk/civicdesk/internal/observability/statsd"
	"github.com/civicdesk/civicdesk/internal/ports"
)

// ProfileSource tells where a resolved profile came from.
type ProfileSource string

const (
	// SourceStored means the profile row already existed.
	SourceStored ProfileSource = "stored"
	// SourceCreated means the row was upserted during this resolution.
	SourceCreated ProfileSource = "created"
	// SourceSynthesized means the store was unusable and the profile exists only in memory.
	SourceSynthesized ProfileSource = "synthesized"
)

// Resolution is the outcome of ProfileResolver.Resolve.
type Resolution struct {
	Profile domainauth.Profile
	Source  ProfileSource
	// Cause carries the store failures that were tolerated, if any.
	Cause error
}

// Degraded reports whether the profile was synthesized rather than persisted.
func (r Resolution) Degraded() bool { return r.Source == SourceSynthesized }

// ProfileResolverOptions groups dependencies for ProfileResolver.
type ProfileResolverOptions struct {
	Store    ports.ProfileStore    // Required
	Metadata *MetadataReader       // Optional: defaults to top-level name/role keys
	Observe  ResolverObservability // Optional
}

// ResolverObservability bundles the optional logger and metrics sink.
type ResolverObservability struct {
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// ProfileResolver obtains the application profile for an identity. It never fails:
// store errors degrade the result instead of aborting the login.
type ProfileResolver struct {
	store    ports.ProfileStore
	metadata *MetadataReader
	logger   *slog.Logger
	metrics  statsd.Sink
	now      func() time.Time
}

// NewProfileResolver constructs a ProfileResolver.
func NewProfileResolver(opts ProfileResolverOptions) *ProfileResolver {
	if opts.Store == nil {
		panic("ProfileResolver requires a Store")
	}
	md := opts.Metadata
	if md == nil {
		md = DefaultMetadataReader()
	}
	logger := opts.Observe.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileResolver{
		store:    opts.Store,
		metadata: md,
		logger:   logger.With("component", "profile_resolver"),
		metrics:  opts.Observe.Metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Resolve looks the profile up, creates it when missing, and falls back to an
// in-memory profile when the store refuses both.
func (r *ProfileResolver) Resolve(ctx context.Context, id domainauth.Identity) Resolution {
	res := r.resolve(ctx, id)
	metrics.EmitResolve(r.metrics, string(res.Source), res.Degraded())
	return res
}

func (r *ProfileResolver) resolve(ctx context.Context, id domainauth.Identity) Resolution {
	stored, err := r.store.GetByID(ctx, id.ID)
	if err == nil {
		return Resolution{Profile: stored, Source: SourceStored}
	}

	var lookupErr error
	if !apperrors.IsNotFound(err) {
		lookupErr = fmt.Errorf("lookup profile: %w", err)
		r.logger.WarnContext(ctx, "profile lookup failed; creating from identity",
			"identity_id", id.ID, "error", err)
	}

	candidate := r.Candidate(id)
	created, err := r.store.Upsert(ctx, candidate)
	if err == nil {
		return Resolution{Profile: created, Source: SourceCreated, Cause: lookupErr}
	}

	r.logger.WarnContext(ctx, "profile upsert failed; using synthesized profile",
		"identity_id", id.ID, "error", err)
	return Resolution{
		Profile: candidate,
		Source:  SourceSynthesized,
		Cause:   errors.Join(lookupErr, fmt.Errorf("upsert profile: %w", err)),
	}
}

// Candidate derives the profile that would be created for id: name from metadata or
// the email local part, role from metadata (lower-cased) or citizen.
func (r *ProfileResolver) Candidate(id domainauth.Identity) domainauth.Profile {
	name := r.metadata.Name(id.Metadata)
	if name == "" {
		name = emailLocalPart(id.Email)
	}
	role := domainauth.DefaultRole
	if raw := r.metadata.Role(id.Metadata); raw != "" {
		role = domainauth.NormalizeRole(raw)
	}
	now := r.now()
	return domainauth.Profile{
		ID:        id.ID,
		Name:      name,
		Email:     id.Email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func emailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
