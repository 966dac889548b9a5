package util

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pterm/pterm"
)

// output is installed once as the writer of every log level, so switching
// the destination never touches pterm's own fields while other goroutines
// are logging.
var output = &switchWriter{w: os.Stdout}

func init() {
	pterm.DefaultLogger.ShowTime = true
	pterm.DefaultLogger.TimeFormat = "02 Jan 15:04:05"
	pterm.DefaultLogger.MaxWidth = 1000
	pterm.DefaultLogger.Writer = output
}

// Leveled logging functions backed by pterm's default logger.
// All output goes to stdout unless redirected with RedirectLogs.

func LogDebug(format string, args ...interface{}) {
	pterm.DefaultLogger.Debug(fmt.Sprintf(format, args...))
}

func LogInfo(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogSuccess(format string, args ...interface{}) {
	pterm.Success.WithWriter(output).Println(fmt.Sprintf(format, args...))
}

func LogWarning(format string, args ...interface{}) {
	pterm.DefaultLogger.Warn(fmt.Sprintf(format, args...))
}

func LogError(format string, args ...interface{}) {
	pterm.DefaultLogger.Error(fmt.Sprintf(format, args...))
}

// EnableDebug configures the logger to show debug messages.
func EnableDebug() {
	pterm.DefaultLogger.Level = pterm.LogLevelDebug
}

// RedirectLogs sends all subsequent log lines to w and returns a function
// restoring the previous writer. The terminal renderer uses it so log lines
// do not tear the arena drawing.
func RedirectLogs(w io.Writer) (restore func()) {
	prev := output.swap(w)
	return func() { output.swap(prev) }
}

// switchWriter forwards to a replaceable writer. Writes and swaps are
// serialised, so a line never straddles two destinations.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *switchWriter) swap(w io.Writer) io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.w
	s.w = w
	return prev
}
