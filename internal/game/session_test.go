package game

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1ureka/lightcycles/internal/protocol"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

type recordingRenderer struct {
	frames     int
	transforms map[EntityID]Vec2
	trails     map[EntityID][]Vec2
	messages   []string
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{
		transforms: make(map[EntityID]Vec2),
		trails:     make(map[EntityID][]Vec2),
	}
}

func (r *recordingRenderer) SetBikeTransform(id EntityID, pos Vec2, _ float64) {
	r.transforms[id] = pos
}
func (r *recordingRenderer) RenderTrail(id EntityID, points []Vec2) { r.trails[id] = points }
func (r *recordingRenderer) ShowMessage(text string)                { r.messages = append(r.messages, text) }
func (r *recordingRenderer) RenderFrame()                           { r.frames++ }

type sentSnapshot struct {
	at  time.Time
	pos protocol.Position
}

type recordingSender struct {
	now  func() time.Time
	sent []sentSnapshot
}

func (s *recordingSender) SendPosition(p protocol.Position) {
	s.sent = append(s.sent, sentSnapshot{at: s.now(), pos: p})
}

// fakeClock is advanced manually by the tests.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestSession(t *testing.T, seat Seat, clock *fakeClock) (*Session, *recordingRenderer, *recordingSender) {
	t.Helper()
	r := newRecordingRenderer()
	snd := &recordingSender{now: clock.Now}
	s, err := NewSession(Config{
		Tuning:   DefaultTuning(),
		Seat:     seat,
		Renderer: r,
		Sender:   snd,
	})
	require.NoError(t, err)
	return s, r, snd
}

const frame = 16 * time.Millisecond

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestSpawnPositions(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	first, _, _ := newTestSession(t, SeatFirst, clock)
	second, _, _ := newTestSession(t, SeatSecond, clock)

	assert.Equal(t, Vec2{X: -150}, first.Local().Pos)
	assert.Equal(t, Vec2{X: 150}, first.Opponent().Pos)
	assert.Equal(t, 0.0, first.Local().Angle)
	assert.Equal(t, math.Pi, first.Opponent().Angle)

	assert.Equal(t, first.Local().Pos, second.Opponent().Pos)
	assert.Equal(t, first.Opponent().Pos, second.Local().Pos)
	assert.Equal(t, 10.0, second.Local().Speed)
}

func TestNewSessionRejectsBadConfig(t *testing.T) {
	_, err := NewSession(Config{Tuning: DefaultTuning(), Sender: &recordingSender{}})
	assert.Error(t, err)

	bad := DefaultTuning()
	bad.TrailMax = 0
	_, err = NewSession(Config{Tuning: bad, Renderer: newRecordingRenderer(), Sender: &recordingSender{}})
	assert.Error(t, err)
}

func TestSteerAndIntegrate(t *testing.T) {
	tun := DefaultTuning()

	t.Run("coasting keeps speed", func(t *testing.T) {
		b := SpawnBike(SeatFirst, tun)
		b.Steer(InputFlags{}, 0.5, tun)
		assert.Equal(t, 10.0, b.Speed)
		assert.Equal(t, 0.0, b.Angle)
	})

	t.Run("opposite keys cancel", func(t *testing.T) {
		b := SpawnBike(SeatFirst, tun)
		b.Steer(InputFlags{Left: true, Right: true, Forward: true, Back: true}, 0.5, tun)
		assert.Equal(t, 10.0, b.Speed)
		assert.Equal(t, 0.0, b.Angle)
	})

	t.Run("left turns counter-clockwise at the turn rate", func(t *testing.T) {
		b := SpawnBike(SeatFirst, tun)
		b.Steer(InputFlags{Left: true}, 0.5, tun)
		assert.InDelta(t, math.Pi/2, b.Angle, 1e-12)
		b.Steer(InputFlags{Right: true}, 0.25, tun)
		assert.InDelta(t, math.Pi/4, b.Angle, 1e-12)
	})

	t.Run("speed clamps to [0, MAX]", func(t *testing.T) {
		b := SpawnBike(SeatFirst, tun)
		b.Steer(InputFlags{Forward: true}, 10, tun)
		assert.Equal(t, tun.MaxSpeed, b.Speed)
		b.Steer(InputFlags{Back: true}, 10, tun)
		assert.Equal(t, 0.0, b.Speed)
	})

	t.Run("advance follows the heading", func(t *testing.T) {
		b := SpawnBike(SeatFirst, tun)
		b.Angle = math.Pi / 2
		b.Advance(2)
		assert.InDelta(t, -150, b.Pos.X, 1e-9)
		assert.InDelta(t, 20, b.Pos.Z, 1e-9)
	})
}

func TestBoundaryBounceInvertsHeading(t *testing.T) {
	tun := DefaultTuning()
	b := SpawnBike(SeatFirst, tun)
	b.Pos = Vec2{X: 305, Z: -310}
	b.Angle = 0.25

	assert.True(t, b.Bounce(tun.HalfArena()))
	assert.Equal(t, Vec2{X: 300, Z: -300}, b.Pos)
	assert.InDelta(t, 0.25+math.Pi, b.Angle, 1e-12)

	assert.False(t, b.Bounce(tun.HalfArena()))
}

func TestStepRecordsTrailAndRenders(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s, r, _ := newTestSession(t, SeatFirst, clock)

	for range 10 {
		clock.Advance(frame)
		require.True(t, s.Step(clock.Now(), frame.Seconds(), InputFlags{}))
	}

	assert.Equal(t, 10, s.Local().Trail.Len())
	assert.Equal(t, 10, r.frames)
	assert.Len(t, r.trails[EntityLocal], 10)
	assert.Equal(t, s.Local().Pos, r.transforms[EntityLocal])
	assert.Equal(t, s.Opponent().Pos, r.transforms[EntityOpponent])
}

func TestRecordSkipsStationaryPoints(t *testing.T) {
	b := SpawnBike(SeatFirst, DefaultTuning())
	b.Speed = 0

	for range 5 {
		b.Advance(0.016)
		b.Record()
	}
	assert.Equal(t, 1, b.Trail.Len())

	b.Speed = 10
	b.Advance(0.016)
	b.Record()
	assert.Equal(t, 2, b.Trail.Len())
}

func TestSendThrottle(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s, _, snd := newTestSession(t, SeatFirst, clock)

	for range 120 { // ~1.9 s of frames
		clock.Advance(frame)
		require.True(t, s.Step(clock.Now(), frame.Seconds(), InputFlags{}))
	}

	require.NotEmpty(t, snd.sent)
	for i := 1; i < len(snd.sent); i++ {
		gap := snd.sent[i].at.Sub(snd.sent[i-1].at)
		assert.GreaterOrEqual(t, gap, DefaultTuning().UpdateInterval)
	}
	// One send per 4 frames (64 ms) at this frame rate.
	assert.Equal(t, 30, len(snd.sent))

	first := snd.sent[0].pos
	assert.Equal(t, protocol.TypePosition, first.Type)
}

func TestSendThrottleToleratesStalls(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s, _, snd := newTestSession(t, SeatFirst, clock)

	clock.Advance(frame)
	s.Step(clock.Now(), frame.Seconds(), InputFlags{})

	// A long stall does not let a burst through afterwards.
	clock.Advance(2 * time.Second)
	s.Step(clock.Now(), frame.Seconds(), InputFlags{})
	clock.Advance(frame)
	s.Step(clock.Now(), frame.Seconds(), InputFlags{})

	assert.Len(t, snd.sent, 2)
}

func TestApplySnapshotOverwritesOpponent(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s, _, _ := newTestSession(t, SeatFirst, clock)

	s.ApplySnapshot(protocol.NewPosition(100, 20, 2.5, 33))
	s.ApplySnapshot(protocol.NewPosition(90, 25, 2.6, 34))

	o := s.Opponent()
	assert.Equal(t, Vec2{X: 90, Z: 25}, o.Pos)
	assert.Equal(t, 2.6, o.Angle)
	assert.Equal(t, 34.0, o.Speed)
	assert.Equal(t, []Vec2{{X: 100, Z: 20}, {X: 90, Z: 25}}, o.Trail.Points())

	// Local stepping never moves the mirror.
	clock.Advance(frame)
	s.Step(clock.Now(), frame.Seconds(), InputFlags{Left: true})
	assert.Equal(t, Vec2{X: 90, Z: 25}, o.Pos)
}

func TestCrashIntoOpponentTrail(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s, r, snd := newTestSession(t, SeatFirst, clock)

	// Opponent has drawn a wall across x = -140.
	s.ApplySnapshot(protocol.NewPosition(-140, -50, math.Pi/2, 10))
	s.ApplySnapshot(protocol.NewPosition(-140, 50, math.Pi/2, 10))

	running := true
	for i := 0; i < 200 && running; i++ {
		clock.Advance(frame)
		running = s.Step(clock.Now(), frame.Seconds(), InputFlags{})
	}

	out, over := s.Over()
	require.True(t, over)
	assert.Equal(t, ReasonOpponentTrail, out.Reason)
	assert.Equal(t, MsgOpponentTrail, out.Message)
	assert.Equal(t, []string{MsgOpponentTrail}, r.messages)

	// Nothing moves or is sent once over.
	pos, sent := s.Local().Pos, len(snd.sent)
	clock.Advance(time.Second)
	assert.False(t, s.Step(clock.Now(), frame.Seconds(), InputFlags{Forward: true}))
	assert.Equal(t, pos, s.Local().Pos)
	assert.Len(t, snd.sent, sent)
	// The crash happened before crossing the wall.
	assert.Less(t, pos.X, -137.0)
}

func TestCrashIntoOwnTrail(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s, _, _ := newTestSession(t, SeatFirst, clock)

	// Turning left at pi rad/s and 10 units/s draws a circle of radius
	// 10/pi ≈ 3.2 in two seconds, closing back on itself.
	var out Outcome
	var over bool
	for range 400 {
		clock.Advance(frame)
		if !s.Step(clock.Now(), frame.Seconds(), InputFlags{Left: true}) {
			out, over = s.Over()
			break
		}
	}

	require.True(t, over)
	assert.Equal(t, ReasonOwnTrail, out.Reason)
	assert.Equal(t, MsgOwnTrail, out.Message)
}

func TestStraightRunDoesNotSelfCollide(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s, _, _ := newTestSession(t, SeatFirst, clock)

	for range 600 {
		clock.Advance(frame)
		require.True(t, s.Step(clock.Now(), frame.Seconds(), InputFlags{}))
	}
}

func TestCheckFrameInterval(t *testing.T) {
	tun := DefaultTuning()
	testCases := []struct {
		interval time.Duration
		ok       bool
	}{
		{time.Second / 30, true},
		{time.Second / 60, true},
		{16 * time.Millisecond, true},
		{14 * time.Millisecond, false},
		{10 * time.Millisecond, false},
		{5 * time.Millisecond, false},
	}

	for _, tc := range testCases {
		t.Run(tc.interval.String(), func(t *testing.T) {
			err := tun.CheckFrameInterval(tc.interval)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	tun.StartSpeed = 0
	assert.NoError(t, tun.CheckFrameInterval(time.Millisecond))
}

// Every frame period that passes CheckFrameInterval keeps a coasting bike
// clear of its own trail; the rejected ones do not.
func TestStraightRunAcrossFrameIntervals(t *testing.T) {
	tun := DefaultTuning()
	for _, d := range []time.Duration{10 * time.Millisecond, 16 * time.Millisecond, 20 * time.Millisecond, time.Second / 30} {
		t.Run(d.String(), func(t *testing.T) {
			clock := &fakeClock{t: time.Unix(0, 0)}
			s, _, _ := newTestSession(t, SeatFirst, clock)

			crashed := false
			for range 300 {
				clock.Advance(d)
				if !s.Step(clock.Now(), d.Seconds(), InputFlags{}) {
					crashed = true
					break
				}
			}
			assert.Equal(t, tun.CheckFrameInterval(d) != nil, crashed)
		})
	}
}

func TestRunRejectsShortFrameInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s, _, _ := newTestSession(t, SeatFirst, clock)

	_, err := s.Run(context.Background(), RunOptions{FrameInterval: 10 * time.Millisecond})
	assert.Error(t, err)
	_, over := s.Over()
	assert.False(t, over)
}

func TestEndIsIdempotent(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s, r, _ := newTestSession(t, SeatFirst, clock)

	s.End(ReasonOpponentLeft, MsgOpponentLeft)
	s.End(ReasonOwnTrail, MsgOwnTrail)

	out, over := s.Over()
	assert.True(t, over)
	assert.Equal(t, ReasonOpponentLeft, out.Reason)
	assert.Equal(t, []string{MsgOpponentLeft}, r.messages)

	// Snapshots after the end are ignored.
	s.ApplySnapshot(protocol.NewPosition(0, 0, 0, 0))
	assert.Equal(t, 0, s.Opponent().Trail.Len())
}

func TestRunEndsOnAbort(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s, _, _ := newTestSession(t, SeatFirst, clock)

	snapshots := make(chan protocol.Position, 1)
	abort := make(chan string, 1)
	snapshots <- protocol.NewPosition(120, 0, math.Pi, 10)

	go func() {
		time.Sleep(100 * time.Millisecond)
		abort <- MsgOpponentLeft
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := s.Run(ctx, RunOptions{
		FrameInterval: 20 * time.Millisecond,
		Controls:      ControlsFunc(func() InputFlags { return InputFlags{} }),
		Snapshots:     snapshots,
		Abort:         abort,
	})
	require.NoError(t, err)
	assert.Equal(t, ReasonOpponentLeft, out.Reason)
	assert.Equal(t, Vec2{X: 120}, s.Opponent().Pos)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s, _, _ := newTestSession(t, SeatFirst, clock)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	out, err := s.Run(ctx, RunOptions{FrameInterval: 20 * time.Millisecond})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, ReasonAborted, out.Reason)
}
