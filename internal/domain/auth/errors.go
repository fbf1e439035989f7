package auth

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed taxonomy of failures the bootstrap protocol surfaces to callers.
type ErrorKind string

const (
	KindInvalidCredentials     ErrorKind = "invalid_credentials"
	KindEmailUnconfirmed       ErrorKind = "email_unconfirmed"
	KindEmailAlreadyRegistered ErrorKind = "email_already_registered"
	KindWeakPassword           ErrorKind = "weak_password"
	KindRateLimited            ErrorKind = "rate_limited"
	KindUnknownRole            ErrorKind = "unknown_role"
	KindAuthenticationFailed   ErrorKind = "authentication_failed"
)

// Error is a classified authentication failure. Message is safe to show to end users;
// Cause keeps the provider text or underlying error for logs.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so errors.Is(err, ErrRateLimited) works on
// errors carrying their own message and cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidCredentials     = &Error{Kind: KindInvalidCredentials, Message: "Invalid email or password."}
	ErrEmailUnconfirmed       = &Error{Kind: KindEmailUnconfirmed, Message: "Please confirm your email address before signing in."}
	ErrEmailAlreadyRegistered = &Error{Kind: KindEmailAlreadyRegistered, Message: "An account with this email already exists."}
	ErrWeakPassword           = &Error{Kind: KindWeakPassword, Message: "Password is too weak. Use at least 6 characters."}
	ErrRateLimited            = &Error{Kind: KindRateLimited, Message: "Too many attempts. Please wait a moment and try again."}
	ErrUnknownRole            = &Error{Kind: KindUnknownRole, Message: "Your account has no recognised role. Contact an administrator."}
	ErrAuthenticationFailed   = &Error{Kind: KindAuthenticationFailed, Message: "Authentication failed. Please try again."}
)

var sentinels = map[ErrorKind]*Error{
	KindInvalidCredentials:     ErrInvalidCredentials,
	KindEmailUnconfirmed:       ErrEmailUnconfirmed,
	KindEmailAlreadyRegistered: ErrEmailAlreadyRegistered,
	KindWeakPassword:           ErrWeakPassword,
	KindRateLimited:            ErrRateLimited,
	KindUnknownRole:            ErrUnknownRole,
	KindAuthenticationFailed:   ErrAuthenticationFailed,
}

// NewError builds a classified error of kind with the default user message and cause attached.
func NewError(kind ErrorKind, cause error) *Error {
	msg := ErrAuthenticationFailed.Message
	if s, ok := sentinels[kind]; ok {
		msg = s.Message
	} else {
		kind = KindAuthenticationFailed
	}
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// KindOf returns the taxonomy kind carried by err, or "" when err is not classified.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage returns the end-user text for err, falling back to the generic failure text.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return ErrAuthenticationFailed.Message
}

// ErrSessionNotFound is returned by session stores for missing or expired sessions.
// It is not part of the taxonomy; callers treat it as "not signed in".
var ErrSessionNotFound = errors.New("session not found")
