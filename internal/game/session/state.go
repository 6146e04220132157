// Package session ties a Telnet connection to a player character: the
// login state machine, the per-session output pump, and the manager that
// routes world output back to connections.
package session

// State tracks where a session is in its lifecycle. Transitions only
// move forward; Closing is entered at most once no matter how many paths
// race to it.
type State int

// Session lifecycle states.
const (
	// StateNegotiating covers the window between accept and the first
	// login prompt.
	StateNegotiating State = iota
	// StateAuthenticating covers the name/password exchange.
	StateAuthenticating
	// StatePlaying means the player entity is live in the world.
	StatePlaying
	// StateClosing means teardown has begun: the entity is being
	// removed, the final save is queued, and the socket is going away.
	StateClosing
	// StateClosed means teardown finished.
	StateClosed
)

// String returns the lowercase state name for logs.
func (s State) String() string {
	switch s {
	case StateNegotiating:
		return "negotiating"
	case StateAuthenticating:
		return "authenticating"
	case StatePlaying:
		return "playing"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
