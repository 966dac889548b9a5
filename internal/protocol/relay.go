package protocol

import (
	"encoding/json"
	"fmt"
)

// Event names carried in Envelope.Event.
const (
	// client → server
	EventJoinRoom    = "join-room"
	EventPlayerReady = "player-ready"
	EventSignal      = "signal" // also server → peer

	// server → client
	EventConnected    = "connected"
	EventPlayerJoined = "player-joined"
	EventRoomFull     = "room-full"
	EventReadyUpdate  = "ready-update"
	EventGameStart    = "game-start"
	EventPlayerLeft   = "player-left"
)

// Envelope is the JSON frame exchanged with the relay over WebSocket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals payload into an Envelope for the given event.
// A nil payload produces an envelope without data.
func NewEnvelope(event string, payload any) (Envelope, error) {
	env := Envelope{Event: event}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	env.Data = data
	return env, nil
}

// Decode unmarshals the envelope data into v. Empty data leaves v untouched.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Event, err)
	}
	return nil
}

// Player is the public view of a room member.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

// Connected tells a new connection its own relay identity.
type Connected struct {
	PlayerID string `json:"playerId"`
}

// JoinRoom is sent by a client to enter (or create) a room.
type JoinRoom struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

// SignalRequest is sent by a client to forward an opaque signal to a peer.
type SignalRequest struct {
	To     string          `json:"to"`
	Signal json.RawMessage `json:"signal"`
}

// SignalDelivery is what the addressed peer receives.
type SignalDelivery struct {
	From   string          `json:"from"`
	Signal json.RawMessage `json:"signal"`
}

// PlayerJoined is broadcast to the whole room after a successful join.
// Players is in join order. Initiator is empty until the room holds two.
type PlayerJoined struct {
	PlayerID   string   `json:"playerId"`
	PlayerName string   `json:"playerName"`
	Players    []Player `json:"players"`
	Initiator  string   `json:"initiator,omitempty"`
}

// ReadyUpdate is broadcast when a member becomes ready.
type ReadyUpdate struct {
	PlayerID string   `json:"playerId"`
	Players  []Player `json:"players"`
}

// GameStart is broadcast once both members are ready.
type GameStart struct {
	Players   []Player `json:"players"`
	Initiator string   `json:"initiator"`
}

// PlayerLeft is broadcast to the remaining member when a player disconnects.
type PlayerLeft struct {
	PlayerID string `json:"playerId"`
}
