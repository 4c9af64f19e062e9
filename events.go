package adnl

import (
	"time"

	"github.com/Dzeta-tech/adnl/pkg/connection"
)

// ConnectionState is the lifecycle state of a server connection,
// re-exported from the connection package for the public API.
type ConnectionState = connection.State

const (
	// StateClosed indicates no connection exists.
	StateClosed = connection.StateClosed

	// StateConnecting indicates a TCP dial is in progress.
	StateConnecting = connection.StateConnecting

	// StateHandshaking indicates the handshake packet has been sent and
	// the acknowledgement is awaited.
	StateHandshaking = connection.StateHandshaking

	// StateReady indicates the connection is established and queries can
	// be sent.
	StateReady = connection.StateReady

	// StateClosing indicates teardown is in progress.
	StateClosing = connection.StateClosing
)

// EventType tags an Event on the client's single event channel.
type EventType int

const (
	// EventConnected indicates the TCP connection is up and the handshake
	// has begun.
	EventConnected EventType = iota

	// EventReady indicates the handshake completed; queries can be sent.
	EventReady

	// EventClosed indicates the connection was torn down.
	EventClosed

	// EventData indicates an inbound payload that matched no pending
	// query; the payload is attached for application-level handling.
	EventData

	// EventError indicates a failure; the cause is attached.
	EventError
)

// String returns a human-readable name for the event type.
func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "Connected"
	case EventReady:
		return "Ready"
	case EventClosed:
		return "Closed"
	case EventData:
		return "Data"
	case EventError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Event is one notification on the client's event channel. All lifecycle
// changes, stray data, and failures arrive on the same channel, tagged by
// Type.
type Event struct {
	// Type tags the event.
	Type EventType

	// Server is the host:port of the server this event relates to.
	Server string

	// Err carries the failure cause for EventError and error-driven
	// EventClosed events. Nil otherwise.
	Err error

	// Data carries the payload for EventData events. Nil otherwise.
	Data []byte

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// IsError returns true if this event represents an error condition.
func (e Event) IsError() bool {
	return e.Err != nil
}
