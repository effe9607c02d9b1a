package wstransport

import (
	"encoding/json"

	"github.com/opd-ai/sessionkit/roster"
	"github.com/opd-ai/sessionkit/session"
)

// Message is the websocket message envelope. Every frame in both
// directions carries an event name and an optional JSON payload.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// joinPayload is sent by the client immediately after the dial succeeds.
type joinPayload struct {
	ClientID    string `json:"client_id"`
	SessionID   string `json:"session_id"`
	Credential  string `json:"credential"`
	DisplayName string `json:"display_name"`
}

// participantPayload mirrors the server's participant representation.
type participantPayload struct {
	ID              string `json:"id"`
	DisplayName     string `json:"display_name"`
	IsHost          bool   `json:"is_host"`
	IsSpeaking      bool   `json:"is_speaking"`
	IsVideoOff      bool   `json:"is_video_off"`
	IsScreenSharing bool   `json:"is_screen_sharing"`
	IsHandRaised    bool   `json:"is_hand_raised"`
}

// streamPayload identifies a published or withdrawn media stream.
type streamPayload struct {
	ParticipantID string `json:"participant_id"`
	StreamKey     string `json:"stream_key"`
}

// publishPayload announces the client's own stream.
type publishPayload struct {
	StreamKey string   `json:"stream_key"`
	TrackIDs  []string `json:"track_ids"`
}

// subscribePayload requests a remote stream at a given preset.
type subscribePayload struct {
	ParticipantID string `json:"participant_id"`
	StreamKey     string `json:"stream_key"`
	Preset        string `json:"preset"`
}

// constraintsPayload requests replacement of the outgoing video
// constraints.
type constraintsPayload struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	FrameRate  int    `json:"frame_rate"`
	MaxBitrate uint32 `json:"max_bitrate"`
}

func (p participantPayload) toParticipant() roster.Participant {
	return roster.Participant{
		ID:              p.ID,
		DisplayName:     p.DisplayName,
		IsHost:          p.IsHost,
		IsSpeaking:      p.IsSpeaking,
		IsVideoOff:      p.IsVideoOff,
		IsScreenSharing: p.IsScreenSharing,
		IsHandRaised:    p.IsHandRaised,
	}
}

// decodeEvent maps a server frame to a session event. Unknown event
// names and malformed payloads return ok=false and are skipped by the
// read loop.
func decodeEvent(msg Message) (session.Event, bool) {
	switch msg.Event {
	case "connected":
		return session.Event{Type: session.EventConnected}, true

	case "disconnected":
		return session.Event{Type: session.EventDisconnected}, true

	case "participant_joined", "participant_updated":
		var p participantPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil || p.ID == "" {
			return session.Event{}, false
		}
		t := session.EventParticipantJoined
		if msg.Event == "participant_updated" {
			t = session.EventParticipantUpdated
		}
		return session.Event{Type: t, Participant: p.toParticipant()}, true

	case "participant_left":
		var s streamPayload
		if err := json.Unmarshal(msg.Data, &s); err != nil || s.ParticipantID == "" {
			return session.Event{}, false
		}
		return session.Event{
			Type:          session.EventParticipantLeft,
			ParticipantID: s.ParticipantID,
		}, true

	case "stream_published", "stream_unpublished":
		var s streamPayload
		if err := json.Unmarshal(msg.Data, &s); err != nil || s.ParticipantID == "" {
			return session.Event{}, false
		}
		t := session.EventStreamPublished
		if msg.Event == "stream_unpublished" {
			t = session.EventStreamUnpublished
		}
		return session.Event{
			Type:          t,
			ParticipantID: s.ParticipantID,
			StreamKey:     s.StreamKey,
		}, true

	default:
		return session.Event{}, false
	}
}
