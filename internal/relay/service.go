// Package relay is the matchmaking and signaling server: rooms of two
// players, ready/start coordination, and verbatim forwarding of peer-link
// signals between connections.
package relay

import (
	"encoding/json"

	"github.com/1ureka/lightcycles/internal/protocol"
	"github.com/1ureka/lightcycles/internal/util"
)

// Outbox delivers an event to one connection. Send must not block and
// reports false when connID is not a live connection.
type Outbox interface {
	Send(connID string, env protocol.Envelope) bool
}

// Service implements the room state machine. It is not safe for concurrent
// use; the Hub calls it from a single goroutine.
type Service struct {
	store   RoomStore
	out     Outbox
	metrics *Metrics

	memberOf map[string]string // conn id → room id
}

// NewService returns a Service over store. metrics may be nil.
func NewService(store RoomStore, out Outbox, metrics *Metrics) *Service {
	return &Service{
		store:    store,
		out:      out,
		metrics:  metrics,
		memberOf: make(map[string]string),
	}
}

// RoomOf returns the room conn is seated in.
func (s *Service) RoomOf(conn string) (*Room, bool) {
	id, ok := s.memberOf[conn]
	if !ok {
		return nil, false
	}
	return s.store.Get(id)
}

// Handle dispatches one inbound envelope from conn.
func (s *Service) Handle(conn string, env protocol.Envelope) {
	switch env.Event {
	case protocol.EventJoinRoom:
		s.countEvent(env.Event)
		var req protocol.JoinRoom
		if err := env.Decode(&req); err != nil {
			util.LogWarning("conn %s: %v", conn, err)
			return
		}
		s.JoinRoom(conn, req.RoomID, req.PlayerName)

	case protocol.EventPlayerReady:
		s.countEvent(env.Event)
		s.SetReady(conn)

	case protocol.EventSignal:
		s.countEvent(env.Event)
		var req protocol.SignalRequest
		if err := env.Decode(&req); err != nil {
			util.LogWarning("conn %s: %v", conn, err)
			return
		}
		s.RelaySignal(conn, req.To, req.Signal)

	default:
		s.countEvent("unknown")
		util.LogDebug("conn %s: ignoring unknown event %q", conn, env.Event)
	}
}

// JoinRoom seats conn in roomID, creating the room on first use. A full room
// answers room-full to the caller only; neither it nor the caller's current
// room is touched.
func (s *Service) JoinRoom(conn, roomID, name string) {
	if roomID == "" {
		util.LogWarning("conn %s: join without room id", conn)
		return
	}

	// A rejected join leaves the caller where it was.
	if room, ok := s.store.Get(roomID); ok && room.Full() && !room.Has(conn) {
		util.LogInfo("room %s is full, rejecting %s", roomID, conn)
		s.send(conn, protocol.EventRoomFull, nil)
		if s.metrics != nil {
			s.metrics.RoomFull.Inc()
		}
		return
	}

	if prev, ok := s.memberOf[conn]; ok {
		util.LogDebug("conn %s leaves room %s to join %s", conn, prev, roomID)
		s.leave(conn)
	}

	room, created := s.store.GetOrCreate(roomID)
	if created {
		util.LogDebug("room %s created", roomID)
		s.gaugeRooms()
	}

	room.add(conn, name)
	s.memberOf[conn] = roomID
	if s.metrics != nil {
		s.metrics.Players.Inc()
	}
	util.LogInfo("%s (%s) joined room %s [%d/%d]", name, conn, roomID, room.Len(), MaxPlayers)

	s.broadcast(room, protocol.EventPlayerJoined, protocol.PlayerJoined{
		PlayerID:   conn,
		PlayerName: name,
		Players:    room.Players(),
		Initiator:  room.Initiator(),
	})
}

// SetReady marks conn ready. Repeated calls are ignored; game-start is
// broadcast exactly once, on the transition to two ready players.
func (s *Service) SetReady(conn string) {
	room, ok := s.RoomOf(conn)
	if !ok {
		return
	}
	if !room.markReady(conn) {
		util.LogDebug("conn %s: duplicate ready ignored", conn)
		return
	}

	s.broadcast(room, protocol.EventReadyUpdate, protocol.ReadyUpdate{
		PlayerID: conn,
		Players:  room.Players(),
	})

	if room.ReadyCount() == MaxPlayers {
		util.LogSuccess("room %s: game start", room.ID)
		s.broadcast(room, protocol.EventGameStart, protocol.GameStart{
			Players:   room.Players(),
			Initiator: room.Initiator(),
		})
		if s.metrics != nil {
			s.metrics.GamesStarted.Inc()
		}
	}
}

// RelaySignal forwards signal from one connection to another without
// inspecting it or checking room membership.
func (s *Service) RelaySignal(from, to string, signal json.RawMessage) {
	env, err := protocol.NewEnvelope(protocol.EventSignal, protocol.SignalDelivery{From: from, Signal: signal})
	if err != nil {
		util.LogError("conn %s: %v", from, err)
		return
	}
	if !s.out.Send(to, env) {
		util.LogWarning("signal from %s dropped: unknown target %q", from, to)
		if s.metrics != nil {
			s.metrics.Dropped.Inc()
		}
		return
	}
	util.Stats.AddRelayed()
	if s.metrics != nil {
		s.metrics.SignalsRelayed.Inc()
	}
}

// Disconnect removes conn from its room, tells the remaining member, and
// deletes the room once empty.
func (s *Service) Disconnect(conn string) {
	s.leave(conn)
}

func (s *Service) leave(conn string) {
	roomID, ok := s.memberOf[conn]
	if !ok {
		return
	}
	delete(s.memberOf, conn)

	room, ok := s.store.Get(roomID)
	if !ok || !room.remove(conn) {
		return
	}
	if s.metrics != nil {
		s.metrics.Players.Dec()
	}

	if room.Len() == 0 {
		s.store.Delete(roomID)
		s.gaugeRooms()
		util.LogDebug("room %s deleted", roomID)
		return
	}

	util.LogInfo("conn %s left room %s", conn, roomID)
	s.broadcast(room, protocol.EventPlayerLeft, protocol.PlayerLeft{PlayerID: conn})
}

func (s *Service) broadcast(room *Room, event string, payload any) {
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		util.LogError("room %s: %v", room.ID, err)
		return
	}
	for _, id := range room.MemberIDs() {
		s.out.Send(id, env)
	}
}

func (s *Service) send(conn, event string, payload any) {
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		util.LogError("conn %s: %v", conn, err)
		return
	}
	s.out.Send(conn, env)
}

func (s *Service) countEvent(event string) {
	if s.metrics != nil {
		s.metrics.Events.WithLabelValues(event).Inc()
	}
}

func (s *Service) gaugeRooms() {
	if s.metrics != nil {
		s.metrics.Rooms.Set(float64(s.store.Len()))
	}
}
