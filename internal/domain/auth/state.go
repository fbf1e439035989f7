package auth

// State is a step of the login/registration bootstrap.
//
//	Idle → Authenticating → ResolvingProfile → Materializing → Routing → Done
//
// Any step may move to Failed. Nothing retries; callers start again from Idle.
type State int

const (
	StateIdle State = iota
	StateAuthenticating
	StateResolvingProfile
	StateMaterializing
	StateRouting
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:             "idle",
	StateAuthenticating:   "authenticating",
	StateResolvingProfile: "resolving_profile",
	StateMaterializing:    "materializing",
	StateRouting:          "routing",
	StateDone:             "done",
	StateFailed:           "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// CanTransition reports whether moving from s to next is a legal step.
func (s State) CanTransition(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == StateFailed {
		return s != StateIdle
	}
	return next == s+1
}
