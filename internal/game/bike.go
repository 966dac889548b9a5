package game

import "math"

// Seat is a player's position in the room's join order. It decides spawn
// point and colour on both clients, so both views agree.
type Seat int

const (
	SeatFirst Seat = iota
	SeatSecond
)

// Other returns the opponent's seat.
func (s Seat) Other() Seat {
	if s == SeatFirst {
		return SeatSecond
	}
	return SeatFirst
}

// Bike is one player's light cycle. The local bike is driven by input;
// the opponent bike is a passive mirror of received snapshots.
type Bike struct {
	Pos   Vec2
	Angle float64 // heading in radians, 0 = +X
	Speed float64
	Trail *Trail
}

// SpawnBike places a bike for seat: the first seat on the left quarter
// line facing +X, the second on the right facing -X.
func SpawnBike(seat Seat, t Tuning) *Bike {
	b := &Bike{
		Speed: t.StartSpeed,
		Trail: NewTrail(t.TrailMax),
	}
	if seat == SeatFirst {
		b.Pos.X = -t.Arena / 4
	} else {
		b.Pos.X = t.Arena / 4
		b.Angle = math.Pi
	}
	return b
}

// Steer applies one frame of input: a net turn and a net acceleration.
// Opposite keys cancel; no key means coasting.
func (b *Bike) Steer(in InputFlags, dt float64, t Tuning) {
	turn := axis(in.Left, in.Right)
	accel := axis(in.Forward, in.Back)

	b.Angle += turn * t.TurnRate * dt
	b.Speed = clamp(b.Speed+accel*t.Accel*dt, 0, t.MaxSpeed)
}

// Advance integrates position along the heading.
func (b *Bike) Advance(dt float64) {
	b.Pos = b.Pos.Add(Direction(b.Angle).Scale(b.Speed * dt))
}

// Bounce clamps the bike into [-half, half] on both axes. When either axis
// was out of bounds the heading is reversed and Bounce reports true.
func (b *Bike) Bounce(half float64) bool {
	hit := false
	if math.Abs(b.Pos.X) > half {
		b.Pos.X = clamp(b.Pos.X, -half, half)
		hit = true
	}
	if math.Abs(b.Pos.Z) > half {
		b.Pos.Z = clamp(b.Pos.Z, -half, half)
		hit = true
	}
	if hit {
		b.Angle += math.Pi
	}
	return hit
}

// Record appends the current position to the trail. A bike that has not
// moved since the last point records nothing.
func (b *Bike) Record() {
	if last, ok := b.Trail.Last(); ok && last == b.Pos {
		return
	}
	b.Trail.Push(b.Pos)
}

// Rotation is the yaw a renderer should apply to the bike model.
func (b *Bike) Rotation() float64 {
	return -b.Angle + math.Pi/2
}

func axis(pos, neg bool) float64 {
	v := 0.0
	if pos {
		v++
	}
	if neg {
		v--
	}
	return v
}
