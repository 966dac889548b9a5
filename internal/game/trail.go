package game

// Trail is a bounded FIFO of recorded positions backed by a ring buffer.
// Index 0 is the oldest point.
type Trail struct {
	buf   []Vec2
	start int
	n     int
}

// NewTrail creates an empty trail holding at most capacity points.
func NewTrail(capacity int) *Trail {
	if capacity < 1 {
		capacity = 1
	}
	return &Trail{buf: make([]Vec2, capacity)}
}

// Push appends p, evicting the oldest point when full. It reports whether
// a point was evicted.
func (t *Trail) Push(p Vec2) bool {
	if t.n < len(t.buf) {
		t.buf[(t.start+t.n)%len(t.buf)] = p
		t.n++
		return false
	}
	t.buf[t.start] = p
	t.start = (t.start + 1) % len(t.buf)
	return true
}

func (t *Trail) Len() int { return t.n }
func (t *Trail) Cap() int { return len(t.buf) }

// At returns the i-th point, oldest first. It panics when i is out of range,
// like a slice index.
func (t *Trail) At(i int) Vec2 {
	if i < 0 || i >= t.n {
		panic("game: trail index out of range")
	}
	return t.buf[(t.start+i)%len(t.buf)]
}

// Last returns the newest point.
func (t *Trail) Last() (Vec2, bool) {
	if t.n == 0 {
		return Vec2{}, false
	}
	return t.At(t.n - 1), true
}

// Points returns a copy of the trail, oldest first.
func (t *Trail) Points() []Vec2 {
	out := make([]Vec2, t.n)
	for i := range out {
		out[i] = t.At(i)
	}
	return out
}

// Reset empties the trail without releasing its storage.
func (t *Trail) Reset() {
	t.start, t.n = 0, 0
}
