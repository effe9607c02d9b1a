package session

import "fmt"

// Status represents the session controller's connection lifecycle state.
type Status int

const (
	// StatusUninitialized is the initial state; no transport exists yet.
	StatusUninitialized Status = iota
	// StatusInitializing indicates the transport has been allocated but
	// no connect attempt has started.
	StatusInitializing
	// StatusConnecting indicates a connect attempt is in flight.
	StatusConnecting
	// StatusConnected indicates the session is live.
	StatusConnected
	// StatusReconnecting indicates the transport dropped while connected;
	// the controller exposes this state but does not itself retry.
	StatusReconnecting
	// StatusDisconnected is a terminal state reached by Disconnect.
	StatusDisconnected
	// StatusFailed is a terminal state reached by initialize/connect
	// failures; only a fresh Initialize (via Reset) recovers.
	StatusFailed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusInitializing:
		return "initializing"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusDisconnected:
		return "disconnected"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// terminal reports whether the status is a terminal lifecycle state.
func (s Status) terminal() bool {
	return s == StatusDisconnected || s == StatusFailed
}
