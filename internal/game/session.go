// Package game implements the per-peer light-cycle simulation: local bike
// movement, the opponent mirror, trails, collision and snapshot pacing.
//
// Each client runs one Session. It is authoritative only for its own bike;
// the opponent bike moves exclusively through received position snapshots.
package game

import (
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/1ureka/lightcycles/internal/protocol"
)

// Reason explains why a session ended.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonOpponentTrail
	ReasonOwnTrail
	ReasonOpponentLeft
	ReasonAborted
)

// User-facing game-over messages.
const (
	MsgOpponentTrail = "You crashed into opponent's trail!"
	MsgOwnTrail      = "You crashed into your own trail!"
	MsgOpponentLeft  = "Other player disconnected"
)

// Outcome is the terminal state of a session.
type Outcome struct {
	Reason  Reason
	Message string
}

// SnapshotSender delivers a position snapshot to the peer. Implementations
// must not block; a snapshot that cannot be sent is dropped.
type SnapshotSender interface {
	SendPosition(protocol.Position)
}

// Config assembles a Session.
type Config struct {
	Tuning   Tuning
	Seat     Seat
	Renderer Renderer
	Sender   SnapshotSender
}

// Session is one player's view of a match. It is not safe for concurrent
// use; Run confines it to a single goroutine.
type Session struct {
	tuning   Tuning
	seat     Seat
	local    *Bike
	opponent *Bike

	renderer Renderer
	sender   SnapshotSender
	limiter  *rate.Limiter

	over    bool
	outcome Outcome
}

// NewSession spawns both bikes for cfg.Seat.
func NewSession(cfg Config) (*Session, error) {
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, err
	}
	if cfg.Renderer == nil {
		return nil, errors.New("game: nil renderer")
	}
	if cfg.Sender == nil {
		return nil, errors.New("game: nil snapshot sender")
	}

	return &Session{
		tuning:   cfg.Tuning,
		seat:     cfg.Seat,
		local:    SpawnBike(cfg.Seat, cfg.Tuning),
		opponent: SpawnBike(cfg.Seat.Other(), cfg.Tuning),
		renderer: cfg.Renderer,
		sender:   cfg.Sender,
		limiter:  rate.NewLimiter(rate.Every(cfg.Tuning.UpdateInterval), 1),
	}, nil
}

// Seat returns the local player's seat.
func (s *Session) Seat() Seat { return s.seat }

// Local returns the local bike. Callers must treat it as read-only.
func (s *Session) Local() *Bike { return s.local }

// Opponent returns the opponent mirror. Callers must treat it as read-only.
func (s *Session) Opponent() *Bike { return s.opponent }

// Over reports whether the session has ended, and how.
func (s *Session) Over() (Outcome, bool) { return s.outcome, s.over }

// Step advances one frame of dt seconds at wall time now. It returns false
// once the session is over; later calls do nothing.
func (s *Session) Step(now time.Time, dt float64, in InputFlags) bool {
	if s.over {
		return false
	}

	b := s.local
	b.Steer(in, dt, s.tuning)
	b.Advance(dt)
	b.Bounce(s.tuning.HalfArena())
	b.Record()

	s.draw()

	switch {
	case HitTrail(b.Pos, s.opponent.Trail, 0, s.tuning.HitThresholdSq):
		s.End(ReasonOpponentTrail, MsgOpponentTrail)
		return false
	case HitTrail(b.Pos, b.Trail, selfSkip(b.Trail.Len(), s.tuning.SelfSkip), s.tuning.HitThresholdSq):
		s.End(ReasonOwnTrail, MsgOwnTrail)
		return false
	}

	if s.limiter.AllowN(now, 1) {
		s.sender.SendPosition(protocol.NewPosition(b.Pos.X, b.Pos.Z, b.Angle, b.Speed))
	}

	s.renderer.RenderFrame()
	return true
}

// ApplySnapshot overwrites the opponent mirror with a received snapshot and
// extends its trail. There is no interpolation or extrapolation.
func (s *Session) ApplySnapshot(p protocol.Position) {
	if s.over {
		return
	}
	o := s.opponent
	o.Pos = Vec2{X: p.X, Z: p.Z}
	o.Angle = p.Angle
	o.Speed = p.Speed
	o.Record()
}

// End finishes the session with reason and shows msg. Only the first call
// has any effect.
func (s *Session) End(reason Reason, msg string) {
	if s.over {
		return
	}
	s.over = true
	s.outcome = Outcome{Reason: reason, Message: msg}
	s.renderer.ShowMessage(msg)
	s.renderer.RenderFrame()
}

func (s *Session) draw() {
	s.renderer.SetBikeTransform(EntityLocal, s.local.Pos, s.local.Rotation())
	s.renderer.RenderTrail(EntityLocal, s.local.Trail.Points())
	s.renderer.SetBikeTransform(EntityOpponent, s.opponent.Pos, s.opponent.Rotation())
	s.renderer.RenderTrail(EntityOpponent, s.opponent.Trail.Points())
}
