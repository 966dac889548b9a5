package protocol

import (
	"encoding/json"
	"fmt"
)

// SignalType identifies the kind of peer-link signaling payload.
type SignalType string

const (
	SignalOffer     SignalType = "offer"
	SignalAnswer    SignalType = "answer"
	SignalCandidate SignalType = "candidate"
)

// Signal is the payload the negotiator exchanges through the relay. The relay
// itself never looks inside it.
type Signal struct {
	Type      SignalType `json:"type"`
	SDP       string     `json:"sdp,omitempty"`
	Candidate string     `json:"candidate,omitempty"` // JSON-encoded ICECandidateInit
}

// ParseSignal decodes a raw relayed signal.
func ParseSignal(raw json.RawMessage) (Signal, error) {
	var s Signal
	if err := json.Unmarshal(raw, &s); err != nil {
		return Signal{}, fmt.Errorf("parse signal: %w", err)
	}
	switch s.Type {
	case SignalOffer, SignalAnswer, SignalCandidate:
		return s, nil
	default:
		return Signal{}, fmt.Errorf("parse signal: unknown type %q", s.Type)
	}
}

// EncodeSignal marshals s for relaying.
func EncodeSignal(s Signal) (json.RawMessage, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode signal: %w", err)
	}
	return raw, nil
}
