package terminal

import (
	"fmt"
	"os"
	"sync"

	"github.com/cuemby/contained/pkg/log"
	"github.com/cuemby/contained/pkg/types"
	"golang.org/x/term"
)

// Guard holds a terminal in raw mode until Restore is called
type Guard struct {
	fd      int
	state   *term.State
	restore sync.Once
	err     error
}

// MakeRaw puts the terminal on fd into raw mode. The caller must Restore
// the returned guard on every exit path, typically with defer.
func MakeRaw(fd int) (*Guard, error) {
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to enter raw terminal mode: %w", err)
	}
	logger := log.WithComponent("terminal")
	logger.Debug().Int("fd", fd).Msg("raw mode entered")
	return &Guard{fd: fd, state: state}, nil
}

// Restore returns the terminal to the state it had before MakeRaw. Only the
// first call has an effect; later calls report its result.
func (g *Guard) Restore() error {
	g.restore.Do(func() {
		if err := term.Restore(g.fd, g.state); err != nil {
			g.err = fmt.Errorf("failed to restore terminal mode: %w", err)
			return
		}
		logger := log.WithComponent("terminal")
		logger.Debug().Int("fd", g.fd).Msg("terminal mode restored")
	})
	return g.err
}

// IsInteractive reports whether stdin, stdout and stderr are all terminals
func IsInteractive() bool {
	for _, f := range []*os.File{os.Stdin, os.Stdout, os.Stderr} {
		if !term.IsTerminal(int(f.Fd())) {
			return false
		}
	}
	return true
}

// Size returns the height and width of the terminal on fd
func Size(fd int) (height, width uint, err error) {
	w, h, err := term.GetSize(fd)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query terminal size: %w", err)
	}
	return uint(h), uint(w), nil
}

// Detect returns the local terminal size when every standard stream is a
// terminal, and nil otherwise. A nil result selects the pipe attach path.
func Detect() *types.Tty {
	if !IsInteractive() {
		return nil
	}
	h, w, err := Size(int(os.Stdout.Fd()))
	if err != nil {
		logger := log.WithComponent("terminal")
		logger.Warn().Err(err).Msg("terminal size unknown, running without a tty")
		return nil
	}
	return &types.Tty{Height: h, Width: w}
}
