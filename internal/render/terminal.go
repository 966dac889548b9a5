package render

import (
	"fmt"

	"github.com/pterm/pterm"

	"github.com/1ureka/lightcycles/internal/game"
)

// Default grid size. Terminal cells are roughly twice as tall as wide.
const (
	DefaultCols = 64
	DefaultRows = 32
)

// Terminal is a game.Renderer that redraws a pterm area once per frame.
type Terminal struct {
	*Canvas
	area *pterm.AreaPrinter
}

// NewTerminal starts a live area. rawMode must be set when the terminal is
// in raw mode, where a bare line feed does not return the carriage.
func NewTerminal(t game.Tuning, local game.Seat, rawMode bool) (*Terminal, error) {
	canvas := NewCanvas(DefaultCols, DefaultRows, t.HalfArena(), local)
	if rawMode {
		canvas.newline = "\r\n"
	}

	area, err := pterm.DefaultArea.Start()
	if err != nil {
		return nil, fmt.Errorf("failed to start terminal area: %w", err)
	}
	return &Terminal{Canvas: canvas, area: area}, nil
}

// RenderFrame pushes the composed frame to the terminal.
func (t *Terminal) RenderFrame() {
	t.area.Update(t.Compose())
}

// Stop leaves the last frame on screen and releases the area.
func (t *Terminal) Stop() error {
	return t.area.Stop()
}
