package app

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/1ureka/lightcycles/internal/game"
	"github.com/1ureka/lightcycles/internal/render"
	"github.com/1ureka/lightcycles/internal/util"
)

// terminalScreen joins the raw-mode keyboard and the terminal renderer.
type terminalScreen struct {
	*render.Terminal
	keys *render.Keyboard

	logs       *syncBuffer
	restoreLog func()
	closeOnce  sync.Once
}

// TerminalFrontend draws the arena on stdout and reads keys from stdin.
// Log lines are held back while the arena is on screen.
func TerminalFrontend(inputHold time.Duration) Frontend {
	return func(t game.Tuning, info MatchInfo) (Screen, error) {
		keys, err := render.OpenKeyboard(os.Stdin, inputHold)
		if err != nil {
			return nil, err
		}

		term, err := render.NewTerminal(t, info.Seat, true)
		if err != nil {
			keys.Close()
			return nil, err
		}
		term.SetStatus(fmt.Sprintf("%s vs %s   WASD/arrows to ride, q to quit", info.Self, info.Opponent))

		logs := &syncBuffer{}
		return &terminalScreen{
			Terminal:   term,
			keys:       keys,
			logs:       logs,
			restoreLog: util.RedirectLogs(logs),
		}, nil
	}
}

func (s *terminalScreen) Flags() game.InputFlags { return s.keys.Flags() }

func (s *terminalScreen) Quit() <-chan struct{} { return s.keys.Quit() }

// Close restores the terminal and replays the held-back log lines.
func (s *terminalScreen) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.keys.Close()
		if stopErr := s.Terminal.Stop(); err == nil {
			err = stopErr
		}
		s.restoreLog()
		os.Stdout.Write(s.logs.Bytes())
	})
	return err
}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}
