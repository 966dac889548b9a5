// Package protocol defines the messages exchanged by lightcycles peers: the
// relay envelope carried over WebSocket and the position snapshot carried
// over the DataChannel.
package protocol

// TypePosition is the only in-game DataChannel message type.
const TypePosition = "position"

// Position is a snapshot of the sender's own bike. It is the only message
// sent peer to peer once the DataChannel is open.
type Position struct {
	Type  string  `msgpack:"type"`
	X     float64 `msgpack:"x"`
	Z     float64 `msgpack:"z"`
	Angle float64 `msgpack:"angle"` // heading in radians
	Speed float64 `msgpack:"speed"`
}

// NewPosition returns a Position snapshot with the type tag already set.
func NewPosition(x, z, angle, speed float64) Position {
	return Position{Type: TypePosition, X: x, Z: z, Angle: angle, Speed: speed}
}
