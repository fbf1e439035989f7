// Package providererr maps identity-provider error payloads onto the closed
// authentication error taxonomy. It is the only place in the codebase that reads
// provider error text.
package providererr

import (
	"errors"
	"net/http"
	"strings"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
)

// rule matches any of its needles (lowercase substrings) to a kind.
type rule struct {
	kind    domainauth.ErrorKind
	needles []string
}

// Order matters: the first matching rule wins.
var rules = []rule{
	{domainauth.KindEmailUnconfirmed, []string{"email not confirmed", "account is not fully set up", "email_not_confirmed"}},
	{domainauth.KindInvalidCredentials, []string{"invalid login credentials", "invalid user credentials", "invalid_grant", "invalid_credentials"}},
	{domainauth.KindEmailAlreadyRegistered, []string{"already registered", "already been registered", "already exists", "user_already_exists", "email_exists"}},
	{domainauth.KindWeakPassword, []string{"password should be at least", "password should contain", "weak password", "weak_password"}},
	{domainauth.KindRateLimited, []string{"rate limit", "too many requests", "you can only request this after", "over_email_send_rate_limit", "over_request_rate_limit"}},
}

// ProviderError is the raw failure reported by a provider, before classification.
type ProviderError struct {
	Status  int
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Code != "":
		return e.Code
	default:
		return http.StatusText(e.Status)
	}
}

// Classify maps a provider status code and message onto the taxonomy.
// Unmatched messages become AuthenticationFailed with the provider text kept as cause.
func Classify(status int, message string) *domainauth.Error {
	return classify(&ProviderError{Status: status, Message: message})
}

// ClassifyError classifies err. Errors that already carry a taxonomy kind pass through
// unchanged; *ProviderError values are matched on code and message; anything else is
// an AuthenticationFailed with err as cause.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	var classified *domainauth.Error
	if errors.As(err, &classified) {
		return err
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return classify(pe)
	}
	return domainauth.NewError(domainauth.KindAuthenticationFailed, err)
}

// MissingUser is returned when the provider reports success but carries no user.
func MissingUser() *domainauth.Error {
	return domainauth.NewError(domainauth.KindAuthenticationFailed, errors.New("provider returned no user"))
}

func classify(pe *ProviderError) *domainauth.Error {
	text := strings.ToLower(pe.Code + " " + pe.Message)
	for _, r := range rules {
		for _, needle := range r.needles {
			if strings.Contains(text, needle) {
				return domainauth.NewError(r.kind, pe)
			}
		}
	}
	if pe.Status == http.StatusTooManyRequests {
		return domainauth.NewError(domainauth.KindRateLimited, pe)
	}
	return domainauth.NewError(domainauth.KindAuthenticationFailed, pe)
}
