package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	apperrors "github.com/civicdesk/civicdesk/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:    "invalid credentials",
			err:     domainauth.NewError(domainauth.KindInvalidCredentials, errors.New("Invalid login credentials")),
			status:  http.StatusUnauthorized,
			code:    "invalid_credentials",
			message: domainauth.ErrInvalidCredentials.Message,
		},
		{
			name:   "unconfirmed",
			err:    fmt.Errorf("login: %w", domainauth.ErrEmailUnconfirmed),
			status: http.StatusForbidden,
			code:   "email_unconfirmed",
		},
		{
			name:   "weak password",
			err:    domainauth.ErrWeakPassword,
			status: http.StatusUnprocessableEntity,
			code:   "weak_password",
		},
		{
			name:   "rate limited",
			err:    domainauth.ErrRateLimited,
			status: http.StatusTooManyRequests,
			code:   "rate_limited",
		},
		{
			name:    "validation",
			err:     apperrors.ValidationField("name", "Name is required."),
			status:  http.StatusBadRequest,
			code:    "validation",
			message: "Name is required.",
		},
		{
			name:   "not found",
			err:    fmt.Errorf("get profile: %w", apperrors.NotFound("profile not found")),
			status: http.StatusNotFound,
			code:   "not_found",
		},
		{
			name:   "store unavailable",
			err:    &apperrors.AppError{Code: apperrors.ErrCodeUnavailable, Message: "down"},
			status: http.StatusServiceUnavailable,
			code:   "unavailable",
		},
		{
			name:    "internal hides details",
			err:     apperrors.Internal("pq: relation missing"),
			status:  http.StatusInternalServerError,
			code:    "internal",
			message: "Something went wrong. Please try again.",
		},
		{
			name:    "unclassified",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			code:    "internal",
			message: "Something went wrong. Please try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := errorResponse(tt.err)
			assert.Equal(t, tt.status, p.Code)
			assert.Equal(t, tt.code, p.ErrCode)
			if tt.message != "" {
				assert.Equal(t, tt.message, p.Err.Error())
			}
		})
	}
}

func TestWriteError_NilErrUsesStatusText(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrorParams{Code: http.StatusTeapot, ErrCode: "teapot"})
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.JSONEq(t, `{"error":"teapot","message":"I'm a teapot"}`, rec.Body.String())
}

func TestParseLimitOffset(t *testing.T) {
	tests := []struct {
		query       string
		limit, offs int
	}{
		{"", 50, 0},
		{"limit=10&offset=20", 10, 20},
		{"limit=0&offset=-3", 1, 0},
		{"limit=9999", 500, 0},
		{"limit=abc", 50, 0},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/x?"+tt.query, nil)
		lim, off := ParseLimitOffset(r, 50, 500)
		assert.Equal(t, tt.limit, lim, tt.query)
		assert.Equal(t, tt.offs, off, tt.query)
	}
}
