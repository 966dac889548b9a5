package game

import "math"

// Vec2 is a point or direction on the arena plane. The vertical axis is
// implicit and constant, so Z is the second planar coordinate.
type Vec2 struct {
	X, Z float64
}

func (v Vec2) Add(o Vec2) Vec2       { return Vec2{v.X + o.X, v.Z + o.Z} }
func (v Vec2) Sub(o Vec2) Vec2       { return Vec2{v.X - o.X, v.Z - o.Z} }
func (v Vec2) Scale(k float64) Vec2  { return Vec2{v.X * k, v.Z * k} }
func (v Vec2) Dot(o Vec2) float64    { return v.X*o.X + v.Z*o.Z }
func (v Vec2) LengthSq() float64     { return v.Dot(v) }
func (v Vec2) DistSq(o Vec2) float64 { return v.Sub(o).LengthSq() }

// Direction returns the unit heading vector for angle.
func Direction(angle float64) Vec2 {
	return Vec2{math.Cos(angle), math.Sin(angle)}
}

// SegDistSq returns the squared distance from p to segment ab using a
// clamped projection. A degenerate segment reduces to the distance to a.
func SegDistSq(p, a, b Vec2) float64 {
	ab := b.Sub(a)
	den := ab.LengthSq()
	if den == 0 {
		return p.DistSq(a)
	}
	t := clamp(p.Sub(a).Dot(ab)/den, 0, 1)
	return p.DistSq(a.Add(ab.Scale(t)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
