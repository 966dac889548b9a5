package game

// EntityID names a drawable bike.
type EntityID string

const (
	EntityLocal    EntityID = "player"
	EntityOpponent EntityID = "opponent"
)

// InputFlags is the raw directional input for one frame.
type InputFlags struct {
	Left, Right, Forward, Back bool
}

// Controls supplies the input held during the current frame.
type Controls interface {
	Flags() InputFlags
}

// Renderer consumes per-frame bike transforms and trail geometry. It is
// only ever called from the frame loop goroutine.
type Renderer interface {
	SetBikeTransform(id EntityID, pos Vec2, rotation float64)
	RenderTrail(id EntityID, points []Vec2)
	ShowMessage(text string)
	RenderFrame()
}

// ControlsFunc adapts a function to Controls.
type ControlsFunc func() InputFlags

func (f ControlsFunc) Flags() InputFlags { return f() }
