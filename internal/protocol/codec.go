package protocol

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotPosition is returned by DecodePosition when a well-formed message
// carries a type other than "position".
var ErrNotPosition = errors.New("not a position message")

// EncodePosition serializes a Position for DataChannel transmission.
func EncodePosition(p Position) ([]byte, error) {
	if p.Type == "" {
		p.Type = TypePosition
	}
	return msgpack.Marshal(&p)
}

// DecodePosition deserializes a DataChannel message into a Position.
func DecodePosition(data []byte) (Position, error) {
	var p Position
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return Position{}, fmt.Errorf("decode position (%d bytes): %w", len(data), err)
	}
	if p.Type != TypePosition {
		return Position{}, fmt.Errorf("%w: %q", ErrNotPosition, p.Type)
	}
	return p, nil
}
