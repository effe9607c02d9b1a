// Package wstransport implements the session.Transport contract over a
// websocket signaling channel. Frames are JSON envelopes with an event
// name and payload; the read and write pumps follow the usual
// gorilla/websocket split with ping keepalives and read deadlines.
package wstransport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/sessionkit/quality"
	"github.com/opd-ai/sessionkit/session"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	readLimit    = 65536
	sendBuffer   = 256
)

// ErrNotConnected is returned by operations that need a live socket.
var ErrNotConnected = errors.New("wstransport: not connected")

// Factory allocates websocket transports for a fixed signaling endpoint.
type Factory struct {
	// URL is the websocket signaling endpoint (ws:// or wss://).
	URL string

	// Dialer overrides the websocket dialer; nil uses the default.
	Dialer *websocket.Dialer
}

// NewTransport implements session.TransportFactory.
func (f *Factory) NewTransport(cfg session.TransportConfig) (session.Transport, error) {
	if f.URL == "" {
		return nil, errors.New("wstransport: signaling URL is required")
	}

	dialer := f.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	return &Transport{
		clientID: uuid.NewString(),
		url:      f.URL,
		dialer:   dialer,
		cfg:      cfg,
		state:    session.TransportNew,
	}, nil
}

// Transport is a websocket-backed session.Transport. One instance serves
// one session attempt; a new attempt gets a new instance from the
// factory.
type Transport struct {
	clientID string
	url      string
	dialer   *websocket.Dialer
	cfg      session.TransportConfig

	mu      sync.Mutex
	conn    *websocket.Conn
	state   session.TransportState
	handler func(session.Event)
	send    chan Message
	done    chan struct{}
}

// Connect dials the signaling endpoint, announces the join, and starts
// the read and write pumps. It returns once the join frame is queued; the
// server's connected event arrives on the event stream.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.state != session.TransportNew {
		state := t.state
		t.mu.Unlock()
		return fmt.Errorf("wstransport: connect in state %d", state)
	}
	t.state = session.TransportConnecting
	t.mu.Unlock()

	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		t.mu.Lock()
		t.state = session.TransportClosed
		t.mu.Unlock()
		return fmt.Errorf("dialing %s: %w", t.url, err)
	}

	send := make(chan Message, sendBuffer)
	done := make(chan struct{})

	t.mu.Lock()
	t.conn = conn
	t.send = send
	t.done = done
	t.mu.Unlock()

	go t.writePump(conn, send, done)
	go t.readPump(conn)

	join, err := json.Marshal(joinPayload{
		ClientID:    t.clientID,
		SessionID:   t.cfg.SessionID,
		Credential:  t.cfg.Credential,
		DisplayName: t.cfg.DisplayName,
	})
	if err != nil {
		return fmt.Errorf("encoding join: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Connect",
		"client_id":  t.clientID,
		"session_id": t.cfg.SessionID,
	}).Info("Signaling channel established, joining session")

	return t.enqueue(Message{Event: "join", Data: join})
}

// Disconnect sends a close frame and tears the socket down. Safe to call
// more than once.
func (t *Transport) Disconnect(_ context.Context) error {
	t.mu.Lock()
	conn := t.conn
	alreadyClosed := t.state == session.TransportClosed
	t.state = session.TransportClosed
	t.conn = nil
	t.mu.Unlock()

	t.signalClosed()

	if alreadyClosed || conn == nil {
		return nil
	}

	deadline := time.Now().Add(writeWait)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Disconnect",
			"error":    err.Error(),
		}).Debug("Close frame not delivered")
	}

	return conn.Close()
}

// AddStream announces the local stream under the given key.
func (t *Transport) AddStream(key string, tracks []session.Track) error {
	ids := make([]string, 0, len(tracks))
	for _, track := range tracks {
		ids = append(ids, track.ID())
	}
	data, err := json.Marshal(publishPayload{StreamKey: key, TrackIDs: ids})
	if err != nil {
		return fmt.Errorf("encoding publish: %w", err)
	}
	return t.enqueue(Message{Event: "publish_stream", Data: data})
}

// AddSubscription requests a remote stream at the given preset.
func (t *Transport) AddSubscription(participantID, key string, opts session.SubscribeOptions) error {
	data, err := json.Marshal(subscribePayload{
		ParticipantID: participantID,
		StreamKey:     key,
		Preset:        opts.Preset.String(),
	})
	if err != nil {
		return fmt.Errorf("encoding subscribe: %w", err)
	}
	return t.enqueue(Message{Event: "subscribe", Data: data})
}

// ReplaceVideoConstraints asks the server to renegotiate the outgoing
// video track.
func (t *Transport) ReplaceVideoConstraints(c quality.Constraints) error {
	data, err := json.Marshal(constraintsPayload{
		Width:      c.Width,
		Height:     c.Height,
		FrameRate:  c.FrameRate,
		MaxBitrate: c.MaxBitrate,
	})
	if err != nil {
		return fmt.Errorf("encoding constraints: %w", err)
	}
	return t.enqueue(Message{Event: "replace_constraints", Data: data})
}

// State implements session.Transport.
func (t *Transport) State() session.TransportState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetEventHandler implements session.Transport.
func (t *Transport) SetEventHandler(handler func(session.Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

func (t *Transport) enqueue(msg Message) error {
	t.mu.Lock()
	send := t.send
	closed := t.state == session.TransportClosed
	t.mu.Unlock()

	if closed || send == nil {
		return ErrNotConnected
	}

	select {
	case send <- msg:
		return nil
	default:
		return fmt.Errorf("wstransport: send queue full, dropping %q", msg.Event)
	}
}

// signalClosed releases the write pump. Safe to call from both teardown
// paths; the channel is handed off under the lock so it closes once.
func (t *Transport) signalClosed() {
	t.mu.Lock()
	done := t.done
	t.done = nil
	t.mu.Unlock()
	if done != nil {
		close(done)
	}
}

func (t *Transport) readPump(conn *websocket.Conn) {
	defer func() {
		t.mu.Lock()
		wasConnected := t.state == session.TransportConnected
		t.state = session.TransportClosed
		t.mu.Unlock()
		t.signalClosed()
		_ = conn.Close()
		if wasConnected {
			t.emit(session.Event{Type: session.EventDisconnected})
		}
	}()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":  "readPump",
				"client_id": t.clientID,
				"error":     err.Error(),
			}).Debug("Read loop terminated")
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		ev, ok := decodeEvent(msg)
		if !ok {
			logrus.WithFields(logrus.Fields{
				"function": "readPump",
				"event":    msg.Event,
			}).Debug("Skipping unrecognized frame")
			continue
		}

		if ev.Type == session.EventConnected {
			t.mu.Lock()
			t.state = session.TransportConnected
			t.mu.Unlock()
		}

		t.emit(ev)
	}
}

func (t *Transport) writePump(conn *websocket.Conn, send <-chan Message, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (t *Transport) emit(ev session.Event) {
	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()
	if handler != nil {
		handler(ev)
	}
}
