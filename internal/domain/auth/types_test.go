package auth

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRole_Valid(t *testing.T) {
	for _, r := range Roles() {
		if !r.Valid() {
			t.Fatalf("expected %q to be valid", r)
		}
	}
	for _, r := range []Role{"", "Officer", "superuser", " admin"} {
		if r.Valid() {
			t.Fatalf("did not expect %q to be valid", r)
		}
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole(" ADMIN "); !ok || r != RoleAdmin {
		t.Fatalf("ParseRole(ADMIN) = %q, %v", r, ok)
	}
	if _, ok := ParseRole("superuser"); ok {
		t.Fatalf("superuser should not parse")
	}
	if NormalizeRole("Officer") != RoleOfficer {
		t.Fatalf("NormalizeRole should lowercase")
	}
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	if (Session{}).Expired(now) {
		t.Fatalf("zero expiry never expires")
	}
	if !(Session{ExpiresAt: now}).Expired(now) {
		t.Fatalf("expiry equal to now is expired")
	}
	if (Session{ExpiresAt: now.Add(time.Minute)}).Expired(now) {
		t.Fatalf("future expiry is not expired")
	}
}

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("sign in: %w", NewError(KindRateLimited, errors.New("429 too many requests")))
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected errors.Is to match by kind")
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("different kinds must not match")
	}
	if KindOf(err) != KindRateLimited {
		t.Fatalf("KindOf = %q", KindOf(err))
	}
	if UserMessage(err) != ErrRateLimited.Message {
		t.Fatalf("UserMessage = %q", UserMessage(err))
	}
}

func TestNewError_UnknownKindFallsBack(t *testing.T) {
	err := NewError("bogus", nil)
	if err.Kind != KindAuthenticationFailed {
		t.Fatalf("unexpected kind %q", err.Kind)
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("plain errors carry no kind")
	}
	if UserMessage(errors.New("plain")) != ErrAuthenticationFailed.Message {
		t.Fatalf("plain errors use the generic message")
	}
}

func TestState_Transitions(t *testing.T) {
	path := []State{StateIdle, StateAuthenticating, StateResolvingProfile, StateMaterializing, StateRouting, StateDone}
	for i := 0; i < len(path)-1; i++ {
		if !path[i].CanTransition(path[i+1]) {
			t.Fatalf("%s -> %s should be allowed", path[i], path[i+1])
		}
	}
	if StateIdle.CanTransition(StateFailed) {
		t.Fatalf("idle cannot fail before starting")
	}
	if !StateRouting.CanTransition(StateFailed) {
		t.Fatalf("routing may fail")
	}
	if StateAuthenticating.CanTransition(StateMaterializing) {
		t.Fatalf("steps cannot be skipped")
	}
	if StateDone.CanTransition(StateIdle) || StateFailed.CanTransition(StateIdle) {
		t.Fatalf("terminal states are final")
	}
	if State(42).String() != "unknown" || StateResolvingProfile.String() != "resolving_profile" {
		t.Fatalf("unexpected state names")
	}
}
