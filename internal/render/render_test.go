package render

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"

	"github.com/1ureka/lightcycles/internal/game"
)

func TestMain(m *testing.M) {
	pterm.DisableColor()
	m.Run()
}

func TestCellMapping(t *testing.T) {
	c := NewCanvas(60, 30, 300, game.SeatFirst)

	testCases := []struct {
		name     string
		p        game.Vec2
		col, row int
	}{
		{"top-left corner", game.Vec2{X: -300, Z: 300}, 0, 0},
		{"bottom-right corner", game.Vec2{X: 300, Z: -300}, 59, 29},
		{"centre", game.Vec2{}, 30, 15},
		{"+Z is up", game.Vec2{Z: 150}, 30, 7},
		{"outside clamps", game.Vec2{X: -1000, Z: -1000}, 0, 29},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			col, row := c.Cell(tc.p)
			assert.Equal(t, tc.col, col)
			assert.Equal(t, tc.row, row)
		})
	}
}

func TestComposeDrawsBikesTrailsAndMessage(t *testing.T) {
	tun := game.DefaultTuning()
	c := NewCanvas(20, 10, tun.HalfArena(), game.SeatFirst)

	local := game.SpawnBike(game.SeatFirst, tun)
	opp := game.SpawnBike(game.SeatSecond, tun)
	c.SetBikeTransform(game.EntityLocal, local.Pos, local.Rotation())
	c.SetBikeTransform(game.EntityOpponent, opp.Pos, opp.Rotation())
	c.RenderTrail(game.EntityLocal, []game.Vec2{{X: -250, Z: 0}, {X: -200, Z: 0}})
	c.SetStatus("grid")
	c.ShowMessage(game.MsgOwnTrail)

	out := c.Compose()
	lines := strings.Split(out, "\n")

	assert.Equal(t, "grid", lines[0])
	assert.Equal(t, "+"+strings.Repeat("-", 20)+"+", lines[1])
	assert.Len(t, lines, 1+1+10+1+1)
	assert.Equal(t, game.MsgOwnTrail, lines[len(lines)-1])

	// Both bikes sit on the middle row facing each other, the local trail
	// behind the local bike.
	assert.Equal(t, "| · · >         <    |", lines[2+5])
}

func TestHeadingGlyph(t *testing.T) {
	assert.Equal(t, ">", headingGlyph(0))
	assert.Equal(t, "^", headingGlyph(math.Pi/2))
	assert.Equal(t, "<", headingGlyph(math.Pi))
	assert.Equal(t, "v", headingGlyph(-math.Pi/2))
	assert.Equal(t, ">", headingGlyph(4*math.Pi+0.1))
}

func TestRawModeUsesCRLF(t *testing.T) {
	c := NewCanvas(4, 2, 300, game.SeatFirst)
	c.newline = "\r\n"
	assert.Equal(t, 3, strings.Count(c.Compose(), "\r\n"))
}

func TestKeyboardHoldWindow(t *testing.T) {
	k := NewKeyboard(100 * time.Millisecond)
	now := time.Unix(0, 0)
	k.now = func() time.Time { return now }

	assert.Equal(t, game.InputFlags{}, k.Flags())

	k.Feed([]byte("wa"))
	assert.Equal(t, game.InputFlags{Forward: true, Left: true}, k.Flags())

	now = now.Add(60 * time.Millisecond)
	k.Feed([]byte("w"))
	now = now.Add(60 * time.Millisecond)
	assert.Equal(t, game.InputFlags{Forward: true}, k.Flags())

	now = now.Add(time.Second)
	assert.Equal(t, game.InputFlags{}, k.Flags())
}

func TestKeyboardArrowKeys(t *testing.T) {
	k := NewKeyboard(time.Second)

	k.Feed([]byte("\x1b[C\x1b"))
	assert.Equal(t, game.InputFlags{Right: true}, k.Flags())

	// The split escape sequence completes on the next read.
	k.Feed([]byte("[B"))
	assert.Equal(t, game.InputFlags{Right: true, Back: true}, k.Flags())
}

func TestKeyboardQuit(t *testing.T) {
	k := NewKeyboard(time.Second)
	k.Feed([]byte{ctrlC})
	k.Feed([]byte("q"))

	select {
	case <-k.Quit():
	default:
		t.Fatal("quit not signalled")
	}
	assert.NoError(t, k.Close())
}
