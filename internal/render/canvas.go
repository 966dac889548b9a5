// Package render draws the arena in a terminal and reads steering keys.
// It implements the game package's Renderer and Controls collaborators.
package render

import (
	"math"
	"strings"

	"github.com/pterm/pterm"

	"github.com/1ureka/lightcycles/internal/game"
)

// Seat colours, identical on both clients.
var seatStyles = map[game.Seat]pterm.Color{
	game.SeatFirst:  pterm.FgCyan,
	game.SeatSecond: pterm.FgLightRed,
}

type bikeState struct {
	pos   game.Vec2
	angle float64
	set   bool
}

// Canvas rasterises bikes and trails onto a character grid. The arena is
// drawn with +Z pointing up so a left turn looks like one.
type Canvas struct {
	cols, rows int
	half       float64
	seats      map[game.EntityID]game.Seat
	newline    string

	bikes   map[game.EntityID]bikeState
	trails  map[game.EntityID][]game.Vec2
	message string
	status  string
}

// NewCanvas returns a cols×rows canvas for an arena of the given half-width.
// local is the seat of the bike drawn as EntityLocal.
func NewCanvas(cols, rows int, half float64, local game.Seat) *Canvas {
	return &Canvas{
		cols: cols,
		rows: rows,
		half: half,
		seats: map[game.EntityID]game.Seat{
			game.EntityLocal:    local,
			game.EntityOpponent: local.Other(),
		},
		newline: "\n",
		bikes:   make(map[game.EntityID]bikeState),
		trails:  make(map[game.EntityID][]game.Vec2),
	}
}

// SetBikeTransform records a bike's position and model yaw.
func (c *Canvas) SetBikeTransform(id game.EntityID, pos game.Vec2, rotation float64) {
	// Yaw is -angle + π/2; recover the heading for the glyph.
	c.bikes[id] = bikeState{pos: pos, angle: math.Pi/2 - rotation, set: true}
}

// RenderTrail records a bike's trail, oldest point first.
func (c *Canvas) RenderTrail(id game.EntityID, points []game.Vec2) {
	c.trails[id] = points
}

// ShowMessage sets the banner shown under the arena.
func (c *Canvas) ShowMessage(text string) { c.message = text }

// SetStatus sets the line shown above the arena.
func (c *Canvas) SetStatus(text string) { c.status = text }

// Cell maps an arena position to a grid cell.
func (c *Canvas) Cell(p game.Vec2) (col, row int) {
	fx := (p.X + c.half) / (2 * c.half)
	fz := (c.half - p.Z) / (2 * c.half)
	col = clampInt(int(fx*float64(c.cols)), 0, c.cols-1)
	row = clampInt(int(fz*float64(c.rows)), 0, c.rows-1)
	return col, row
}

// Compose renders the current state to a string.
func (c *Canvas) Compose() string {
	grid := make([][]string, c.rows)
	for r := range grid {
		grid[r] = make([]string, c.cols)
		for col := range grid[r] {
			grid[r][col] = " "
		}
	}

	for _, id := range []game.EntityID{game.EntityOpponent, game.EntityLocal} {
		color := seatStyles[c.seats[id]]
		for _, p := range c.trails[id] {
			col, row := c.Cell(p)
			grid[row][col] = color.Sprint("·")
		}
	}
	for _, id := range []game.EntityID{game.EntityOpponent, game.EntityLocal} {
		b, ok := c.bikes[id]
		if !ok || !b.set {
			continue
		}
		col, row := c.Cell(b.pos)
		grid[row][col] = pterm.NewStyle(seatStyles[c.seats[id]], pterm.Bold).Sprint(headingGlyph(b.angle))
	}

	var sb strings.Builder
	if c.status != "" {
		sb.WriteString(c.status)
		sb.WriteString(c.newline)
	}
	border := "+" + strings.Repeat("-", c.cols) + "+"
	sb.WriteString(border)
	sb.WriteString(c.newline)
	for _, line := range grid {
		sb.WriteString("|")
		sb.WriteString(strings.Join(line, ""))
		sb.WriteString("|")
		sb.WriteString(c.newline)
	}
	sb.WriteString(border)
	if c.message != "" {
		sb.WriteString(c.newline)
		sb.WriteString(pterm.NewStyle(pterm.FgYellow, pterm.Bold).Sprint(c.message))
	}
	return sb.String()
}

// headingGlyph picks an arrow for a heading in radians, 0 = +X.
func headingGlyph(angle float64) string {
	a := math.Mod(angle, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	switch sector := int(math.Round(a/(math.Pi/2))) % 4; sector {
	case 0:
		return ">"
	case 1:
		return "^"
	case 2:
		return "<"
	default:
		return "v"
	}
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
