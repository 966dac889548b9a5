package render

import (
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/1ureka/lightcycles/internal/game"
	"github.com/1ureka/lightcycles/internal/util"
)

type key int

const (
	keyLeft key = iota
	keyRight
	keyForward
	keyBack
	numKeys
)

const (
	ctrlC = 0x03
	esc   = 0x1b
)

// Keyboard turns terminal key presses into held-key flags. Terminals only
// report presses (and auto-repeat), so a key counts as held for a short
// window after each press.
type Keyboard struct {
	hold time.Duration
	now  func() time.Time

	mu      sync.Mutex
	pressed [numKeys]time.Time
	pending []byte // incomplete escape sequence

	quit     chan struct{}
	quitOnce sync.Once
	restore  func() error
}

// NewKeyboard returns a Keyboard that is fed manually with Feed.
func NewKeyboard(hold time.Duration) *Keyboard {
	return &Keyboard{
		hold:    hold,
		now:     time.Now,
		quit:    make(chan struct{}),
		restore: func() error { return nil },
	}
}

// OpenKeyboard puts f into raw mode and reads keys from it in the
// background. Close restores the terminal.
func OpenKeyboard(f *os.File, hold time.Duration) (*Keyboard, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("keyboard input requires a terminal")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}

	k := NewKeyboard(hold)
	k.restore = func() error { return term.Restore(fd, state) }
	go k.readLoop(f)
	return k, nil
}

// Flags implements game.Controls.
func (k *Keyboard) Flags() game.InputFlags {
	now := k.now()
	k.mu.Lock()
	defer k.mu.Unlock()

	held := func(i key) bool {
		t := k.pressed[i]
		return !t.IsZero() && now.Sub(t) < k.hold
	}
	return game.InputFlags{
		Left:    held(keyLeft),
		Right:   held(keyRight),
		Forward: held(keyForward),
		Back:    held(keyBack),
	}
}

// Quit is closed when the player presses q or Ctrl+C.
func (k *Keyboard) Quit() <-chan struct{} { return k.quit }

// Feed interprets raw terminal input: WASD, arrow keys, q and Ctrl+C.
func (k *Keyboard) Feed(data []byte) {
	now := k.now()
	k.mu.Lock()
	defer k.mu.Unlock()

	buf := append(k.pending, data...)
	k.pending = nil

	for i := 0; i < len(buf); i++ {
		switch b := buf[i]; b {
		case 'a', 'A':
			k.pressed[keyLeft] = now
		case 'd', 'D':
			k.pressed[keyRight] = now
		case 'w', 'W':
			k.pressed[keyForward] = now
		case 's', 'S':
			k.pressed[keyBack] = now
		case 'q', 'Q', ctrlC:
			k.quitOnce.Do(func() { close(k.quit) })
		case esc:
			// Arrow keys arrive as ESC [ A..D.
			if i+2 >= len(buf) {
				k.pending = append([]byte(nil), buf[i:]...)
				return
			}
			if buf[i+1] != '[' {
				continue
			}
			switch buf[i+2] {
			case 'A':
				k.pressed[keyForward] = now
			case 'B':
				k.pressed[keyBack] = now
			case 'C':
				k.pressed[keyRight] = now
			case 'D':
				k.pressed[keyLeft] = now
			}
			i += 2
		}
	}
}

// Close restores the terminal state.
func (k *Keyboard) Close() error {
	return k.restore()
}

func (k *Keyboard) readLoop(r io.Reader) {
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			k.Feed(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				util.LogDebug("keyboard read: %v", err)
			}
			return
		}
	}
}
