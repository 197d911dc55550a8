// Package wire defines the JSON envelopes exchanged between the media
// gateway and its clients over the session WebSocket.
package wire

import "encoding/json"

// MessageType identifies the kind of gateway message.
type MessageType string

const (
	MsgTypeOffer     MessageType = "offer"
	MsgTypeAnswer    MessageType = "answer"
	MsgTypeCandidate MessageType = "candidate"
	MsgTypeData      MessageType = "data"
	MsgTypePresence  MessageType = "presence"
	MsgTypePing      MessageType = "ping"
	MsgTypePong      MessageType = "pong"
)

// Envelope is the JSON structure exchanged over the gateway WebSocket.
// Fields are populated per Type; unknown types must be ignored by
// consumers, not treated as errors.
type Envelope struct {
	Type MessageType `json:"type"`

	// data
	Subject string          `json:"subject,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	From    string          `json:"from,omitempty"`

	// offer / answer
	SDP string `json:"sdp,omitempty"`
	// candidate: JSON-encoded ICECandidateInit
	Candidate json.RawMessage `json:"candidate,omitempty"`

	// presence
	Count   int      `json:"count,omitempty"`
	Members []string `json:"members,omitempty"`
}

// Data builds a side-channel frame for a typed payload.
func Data(subject string, payload []byte) ([]byte, error) {
	return json.Marshal(Envelope{Type: MsgTypeData, Subject: subject, Payload: payload})
}

// Presence builds a membership snapshot frame.
func Presence(members []string) ([]byte, error) {
	return json.Marshal(Envelope{Type: MsgTypePresence, Count: len(members), Members: members})
}
