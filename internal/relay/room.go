package relay

import (
	"slices"

	"github.com/1ureka/lightcycles/internal/protocol"
)

// MaxPlayers is the room capacity.
const MaxPlayers = 2

// State is a room's position in the matchmaking lifecycle.
type State int

const (
	StateEmpty State = iota
	StateWaiting
	StateFull
	StateStarted
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateWaiting:
		return "waiting"
	case StateFull:
		return "full"
	case StateStarted:
		return "started"
	default:
		return "unknown"
	}
}

// Room is a named two-seat lobby. Players are kept in join order; the first
// entry always holds the first seat.
type Room struct {
	ID      string
	players []protocol.Player
	ready   int
}

func newRoom(id string) *Room {
	return &Room{ID: id}
}

// Len returns the number of members.
func (r *Room) Len() int { return len(r.players) }

// ReadyCount returns the number of members that have signalled ready.
func (r *Room) ReadyCount() int { return r.ready }

// Full reports whether no further player can join.
func (r *Room) Full() bool { return len(r.players) >= MaxPlayers }

// State derives the lifecycle state from membership and readiness.
func (r *Room) State() State {
	switch {
	case len(r.players) == 0:
		return StateEmpty
	case len(r.players) < MaxPlayers:
		return StateWaiting
	case r.ready < MaxPlayers:
		return StateFull
	default:
		return StateStarted
	}
}

// Players returns a copy of the member list in join order.
func (r *Room) Players() []protocol.Player {
	return slices.Clone(r.players)
}

// Has reports whether id is a member.
func (r *Room) Has(id string) bool {
	return r.index(id) >= 0
}

// Initiator returns the member that opens the peer link: the smaller id of a
// full room. It is empty while the room has a free seat.
func (r *Room) Initiator() string {
	if len(r.players) < MaxPlayers {
		return ""
	}
	return min(r.players[0].ID, r.players[1].ID)
}

// MemberIDs returns member ids in join order.
func (r *Room) MemberIDs() []string {
	ids := make([]string, len(r.players))
	for i, p := range r.players {
		ids[i] = p.ID
	}
	return ids
}

func (r *Room) add(id, name string) bool {
	if r.Full() || r.Has(id) {
		return false
	}
	r.players = append(r.players, protocol.Player{ID: id, Name: name})
	return true
}

// markReady flips the member's ready flag. It reports false when id is not a
// member or was already ready.
func (r *Room) markReady(id string) bool {
	i := r.index(id)
	if i < 0 || r.players[i].Ready {
		return false
	}
	r.players[i].Ready = true
	r.ready++
	return true
}

func (r *Room) remove(id string) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	if r.players[i].Ready {
		r.ready--
	}
	r.players = slices.Delete(r.players, i, i+1)
	return true
}

func (r *Room) index(id string) int {
	return slices.IndexFunc(r.players, func(p protocol.Player) bool { return p.ID == id })
}

// RoomStore keeps rooms by id. A Service owns exactly one store and is the
// only caller, so implementations need no locking.
type RoomStore interface {
	Get(id string) (*Room, bool)
	GetOrCreate(id string) (room *Room, created bool)
	Delete(id string)
	Len() int
}

// MemoryStore is the in-process RoomStore. Rooms do not survive a restart.
type MemoryStore struct {
	rooms map[string]*Room
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string]*Room)}
}

func (s *MemoryStore) Get(id string) (*Room, bool) {
	r, ok := s.rooms[id]
	return r, ok
}

func (s *MemoryStore) GetOrCreate(id string) (*Room, bool) {
	if r, ok := s.rooms[id]; ok {
		return r, false
	}
	r := newRoom(id)
	s.rooms[id] = r
	return r, true
}

func (s *MemoryStore) Delete(id string) { delete(s.rooms, id) }

func (s *MemoryStore) Len() int { return len(s.rooms) }
