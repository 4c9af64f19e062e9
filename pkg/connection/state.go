// Package connection owns the TCP socket and session state machine of one
// ADNL connection: dialing, the encryption handshake, the background
// decrypt/reassemble loop, and teardown.
package connection

import "fmt"

// State represents the lifecycle state of a connection.
type State int

const (
	// StateClosed indicates no socket exists. The initial and final state.
	StateClosed State = iota

	// StateConnecting indicates a TCP dial is in progress.
	StateConnecting

	// StateHandshaking indicates the socket is up, the session ciphers are
	// installed, and the handshake packet has been sent; awaiting the
	// empty-frame acknowledgement.
	StateHandshaking

	// StateReady indicates the handshake completed. The only state in
	// which Write succeeds.
	StateReady

	// StateClosing indicates teardown is in progress.
	StateClosing
)

// String returns a human-readable representation of the connection state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateConnecting:
		return "Connecting"
	case StateHandshaking:
		return "Handshaking"
	case StateReady:
		return "Ready"
	case StateClosing:
		return "Closing"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// IsActive returns true if the connection has a live socket
// (connecting, handshaking, or ready).
func (s State) IsActive() bool {
	return s == StateConnecting || s == StateHandshaking || s == StateReady
}

// CanTransitionTo checks if a transition from the current state to
// the target state is valid.
func (s State) CanTransitionTo(target State) bool {
	// Define valid state transitions. Every non-closed state may begin
	// teardown; only Closing reaches Closed.
	validTransitions := map[State][]State{
		StateClosed:      {StateConnecting},
		StateConnecting:  {StateHandshaking, StateClosing},
		StateHandshaking: {StateReady, StateClosing},
		StateReady:       {StateClosing},
		StateClosing:     {StateClosed},
	}

	allowed, ok := validTransitions[s]
	if !ok {
		return false
	}

	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// ValidateTransition returns an error if the transition is invalid.
func (s State) ValidateTransition(target State) error {
	if !s.CanTransitionTo(target) {
		return fmt.Errorf("invalid state transition: %s -> %s", s, target)
	}
	return nil
}
