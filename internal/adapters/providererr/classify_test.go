package providererr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		want    domainauth.ErrorKind
	}{
		{"invalid credentials", http.StatusBadRequest, "Invalid login credentials", domainauth.KindInvalidCredentials},
		{"invalid credentials mixed case", http.StatusBadRequest, "INVALID LOGIN CREDENTIALS", domainauth.KindInvalidCredentials},
		{"oidc invalid grant", http.StatusBadRequest, "oauth2: \"invalid_grant\" \"Invalid user credentials\"", domainauth.KindInvalidCredentials},
		{"unconfirmed", http.StatusBadRequest, "Email not confirmed", domainauth.KindEmailUnconfirmed},
		{"keycloak unconfirmed", http.StatusBadRequest, "Account is not fully set up", domainauth.KindEmailUnconfirmed},
		{"already registered", http.StatusUnprocessableEntity, "User already registered", domainauth.KindEmailAlreadyRegistered},
		{"already been registered", http.StatusUnprocessableEntity, "A user with this email address has already been registered", domainauth.KindEmailAlreadyRegistered},
		{"weak password", http.StatusUnprocessableEntity, "Password should be at least 6 characters.", domainauth.KindWeakPassword},
		{"rate limit text", http.StatusBadRequest, "Email rate limit exceeded", domainauth.KindRateLimited},
		{"rate limit after", http.StatusBadRequest, "For security purposes, you can only request this after 42 seconds.", domainauth.KindRateLimited},
		{"rate limit status only", http.StatusTooManyRequests, "slow down", domainauth.KindRateLimited},
		{"unmatched", http.StatusInternalServerError, "Database error saving new user", domainauth.KindAuthenticationFailed},
		{"empty", 0, "", domainauth.KindAuthenticationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(tt.status, tt.message)
			assert.Equal(t, tt.want, err.Kind)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestClassify_KeepsProviderTextAsCause(t *testing.T) {
	err := Classify(http.StatusInternalServerError, "Database error saving new user")

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Database error saving new user", pe.Message)
	assert.NotContains(t, err.Message, "Database", "user-visible message must not leak provider text")
}

func TestClassify_MatchesErrorCode(t *testing.T) {
	err := classify(&ProviderError{Status: http.StatusBadRequest, Code: "email_not_confirmed"})
	assert.ErrorIs(t, err, domainauth.ErrEmailUnconfirmed)
}

func TestClassifyError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, ClassifyError(nil))
	})

	t.Run("already classified passes through", func(t *testing.T) {
		in := fmt.Errorf("wrapped: %w", domainauth.ErrWeakPassword)
		assert.Same(t, in, ClassifyError(in))
	})

	t.Run("provider error", func(t *testing.T) {
		in := fmt.Errorf("sign in: %w", &ProviderError{Status: 400, Message: "Invalid login credentials"})
		assert.ErrorIs(t, ClassifyError(in), domainauth.ErrInvalidCredentials)
	})

	t.Run("transport failure", func(t *testing.T) {
		out := ClassifyError(context.DeadlineExceeded)
		assert.ErrorIs(t, out, domainauth.ErrAuthenticationFailed)
		assert.True(t, errors.Is(out, context.DeadlineExceeded))
	})
}

func TestMissingUser(t *testing.T) {
	assert.Equal(t, domainauth.KindAuthenticationFailed, MissingUser().Kind)
}

func TestProviderError_Error(t *testing.T) {
	assert.Equal(t, "msg", (&ProviderError{Message: "msg", Code: "c"}).Error())
	assert.Equal(t, "c", (&ProviderError{Code: "c"}).Error())
	assert.Equal(t, "Too Many Requests", (&ProviderError{Status: 429}).Error())
}
