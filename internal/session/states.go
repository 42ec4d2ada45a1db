package session

// State is the current mode of the session state machine.
type State int

const (
	StateIdle State = iota

	// Connecting
	StateCreatingSession
	StateRetrievingConfig
	StateUpdatingToken

	// Connected
	StateAuthenticating
	StateLoggedOut
	StateLoggedIn
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCreatingSession:
		return "creating_session"
	case StateRetrievingConfig:
		return "retrieving_config"
	case StateUpdatingToken:
		return "updating_token"
	case StateAuthenticating:
		return "authenticating"
	case StateLoggedOut:
		return "logged_out"
	case StateLoggedIn:
		return "logged_in"
	default:
		return "unknown"
	}
}

// Connecting reports whether s is a handshake step.
func (s State) Connecting() bool {
	return s >= StateCreatingSession && s <= StateUpdatingToken
}

// Connected reports whether a session and a live token are held.
func (s State) Connected() bool {
	return s >= StateAuthenticating
}

// Ready reports whether s is one of the ready sub-states.
func (s State) Ready() bool {
	return s == StateLoggedOut || s == StateLoggedIn
}

// Priority separates handshake calls from ordinary calls.
type Priority int

const (
	PriorityNormal Priority = iota
	PrioritySystem
)

func (p Priority) String() string {
	if p == PrioritySystem {
		return "system"
	}
	return "normal"
}
