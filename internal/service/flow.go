package service

import (
	"context"
	"log/slog"

	domainauth "github.com/civicdesk/civicdesk/internal/domain/auth"
)

// Flow tracks one pass through the bootstrap state machine and logs each step at DEBUG.
type Flow struct {
	op     string
	state  domainauth.State
	kind   domainauth.ErrorKind
	logger *slog.Logger
}

// NewFlow starts a flow in StateIdle.
func NewFlow(op string, logger *slog.Logger) *Flow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flow{op: op, state: domainauth.StateIdle, logger: logger}
}

// State returns the current state.
func (f *Flow) State() domainauth.State { return f.state }

// Kind returns the failure kind once the flow has failed.
func (f *Flow) Kind() domainauth.ErrorKind { return f.kind }

// Advance moves to next. Illegal transitions are logged and ignored.
func (f *Flow) Advance(ctx context.Context, next domainauth.State) bool {
	if !f.state.CanTransition(next) {
		f.logger.ErrorContext(ctx, "illegal bootstrap transition",
			"op", f.op, "from", f.state.String(), "to", next.String())
		return false
	}
	f.logger.DebugContext(ctx, "bootstrap transition", "op", f.op, "from", f.state.String(), "to", next.String())
	f.state = next
	return true
}

// Fail moves to StateFailed and records the taxonomy kind of err.
func (f *Flow) Fail(ctx context.Context, err error) {
	f.kind = domainauth.KindOf(err)
	if f.kind == "" {
		f.kind = domainauth.KindAuthenticationFailed
	}
	if f.state == domainauth.StateIdle {
		// failures before the first step (bad input) still end the flow
		f.state = domainauth.StateAuthenticating
	}
	if f.Advance(ctx, domainauth.StateFailed) {
		f.logger.DebugContext(ctx, "bootstrap failed", "op", f.op, "kind", string(f.kind))
	}
}
