package session

import (
	"context"

	"github.com/opd-ai/sessionkit/quality"
	"github.com/opd-ai/sessionkit/roster"
)

// EventType identifies a remote event emitted by the transport.
type EventType int

const (
	// EventConnected fires when the transport reaches the remote endpoint.
	EventConnected EventType = iota
	// EventDisconnected fires when the transport loses the remote endpoint.
	EventDisconnected
	// EventParticipantJoined carries a new remote participant.
	EventParticipantJoined
	// EventParticipantLeft carries the id of a departed participant.
	EventParticipantLeft
	// EventParticipantUpdated carries changed participant state flags.
	EventParticipantUpdated
	// EventStreamPublished carries a newly published media stream key.
	EventStreamPublished
	// EventStreamUnpublished carries a withdrawn media stream key.
	EventStreamUnpublished
)

// Event is one remote event from the transport's event stream.
type Event struct {
	Type          EventType
	Participant   roster.Participant // Populated for joined/updated
	ParticipantID string             // Populated for left and stream events
	StreamKey     string             // Populated for stream events
}

// TransportState is the transport's own view of its connection, consulted
// by the controller to resolve the connect race when the transport call
// returns before the connected event arrives.
type TransportState int

const (
	// TransportNew means no connect attempt has been made.
	TransportNew TransportState = iota
	// TransportConnecting means a connect attempt is in flight.
	TransportConnecting
	// TransportConnected means the transport is live.
	TransportConnected
	// TransportClosed means the transport has disconnected or failed.
	TransportClosed
)

// Transport is the media/signaling collaborator the controller drives. It
// is an external dependency: implementations wrap whatever SDK or wire
// protocol actually carries the session.
//
// Connect may return before or after the transport emits EventConnected;
// the controller treats the two signals as a race and accepts whichever
// arrives first. Event delivery must be sequential (one event at a time).
type Transport interface {
	// Connect establishes the session. Blocking; returns once the
	// transport call itself completes, which is not necessarily when
	// the connected event fires.
	Connect(ctx context.Context) error

	// Disconnect tears the session down. Best-effort.
	Disconnect(ctx context.Context) error

	// AddStream publishes local tracks under the given stream key.
	AddStream(key string, tracks []Track) error

	// AddSubscription subscribes to a remote participant's stream.
	AddSubscription(participantID, key string, opts SubscribeOptions) error

	// ReplaceVideoConstraints renegotiates the outgoing video track with
	// new capture constraints.
	ReplaceVideoConstraints(c quality.Constraints) error

	// State returns the transport's current connection state.
	State() TransportState

	// SetEventHandler installs the single event handler. Passing nil
	// clears it; the transport must not invoke a cleared handler.
	SetEventHandler(handler func(Event))
}

// SubscribeOptions tunes a remote stream subscription.
type SubscribeOptions struct {
	Preset quality.Preset // Requested inbound quality
}

// TransportConfig carries the session parameters a factory needs to
// allocate a transport.
type TransportConfig struct {
	SessionID   string
	Credential  string
	DisplayName string
}

// TransportFactory allocates transports. Injecting the factory keeps the
// controller free of hidden singletons and lets tests substitute mocks.
type TransportFactory interface {
	NewTransport(cfg TransportConfig) (Transport, error)
}

// TransportFactoryFunc adapts a function to the TransportFactory interface.
type TransportFactoryFunc func(cfg TransportConfig) (Transport, error)

// NewTransport implements TransportFactory.
func (f TransportFactoryFunc) NewTransport(cfg TransportConfig) (Transport, error) {
	return f(cfg)
}
