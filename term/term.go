// Package term wraps github.com/pkg/term/termios to give the console
// front-end a raw/cbreak-mode POSIX terminal with geometry tracking,
// adapted from the easyterm helper the teacher's own command-line
// debugger builds on.
package term

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"unsafe"

	"github.com/pkg/term/termios"
)

// Geometry is a terminal's character and pixel dimensions.
type Geometry struct {
	Rows, Cols uint16
	X, Y       uint16
}

// Terminal is a POSIX terminal in one of three modes: canonical (the
// default line-buffered mode), raw, or cbreak (character-at-a-time,
// signals still processed).
type Terminal struct {
	input  *os.File
	output *os.File

	Geometry Geometry

	canAttr    syscall.Termios
	rawAttr    syscall.Termios
	cbreakAttr syscall.Termios

	resizeStop chan bool
	resizeDone chan bool

	mu sync.Mutex
}

// Open initialises a Terminal over the given input/output files,
// capturing the current terminal attributes and starting a SIGWINCH
// watcher that keeps Geometry current.
func Open(input, output *os.File) (*Terminal, error) {
	if input == nil || output == nil {
		return nil, fmt.Errorf("term: input and output files are required")
	}

	t := &Terminal{input: input, output: output}

	if err := termios.Tcgetattr(t.input.Fd(), &t.canAttr); err != nil {
		return nil, fmt.Errorf("term: %w", err)
	}
	termios.Cfmakecbreak(&t.cbreakAttr)
	termios.Cfmakeraw(&t.rawAttr)

	t.resizeStop = make(chan bool)
	t.resizeDone = make(chan bool)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGWINCH)
		defer func() { t.resizeDone <- true }()

		for {
			select {
			case <-sig:
				_ = t.UpdateGeometry()
			case <-t.resizeStop:
				return
			}
		}
	}()

	_ = t.UpdateGeometry()

	return t, nil
}

// Close stops the geometry watcher and restores canonical mode.
func (t *Terminal) Close() {
	t.CanonicalMode()
	t.resizeStop <- true
	<-t.resizeDone
}

// Print writes a formatted string to the terminal's output file.
func (t *Terminal) Print(format string, a ...interface{}) {
	fmt.Fprintf(t.output, format, a...)
}

// UpdateGeometry refreshes Geometry from the kernel's current view of
// the output file's window size.
func (t *Terminal) UpdateGeometry() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, t.output.Fd(), uintptr(syscall.TIOCGWINSZ), uintptr(unsafe.Pointer(&t.Geometry)))
	if errno != 0 {
		return fmt.Errorf("term: ioctl TIOCGWINSZ failed (%d)", errno)
	}
	return nil
}

// CanonicalMode restores the terminal's original (pre-Open) attributes.
func (t *Terminal) CanonicalMode() {
	termios.Tcsetattr(t.input.Fd(), termios.TCIFLUSH, &t.canAttr)
}

// RawMode puts the terminal into raw mode: no line buffering, no echo,
// no signal processing.
func (t *Terminal) RawMode() {
	termios.Tcsetattr(t.input.Fd(), termios.TCIFLUSH, &t.rawAttr)
}

// CBreakMode puts the terminal into cbreak mode: character-at-a-time
// input with signals (Ctrl-C etc.) still processed, the mode the
// console front-end runs in while waiting on a single keypress.
func (t *Terminal) CBreakMode() {
	termios.Tcsetattr(t.input.Fd(), termios.TCIFLUSH, &t.cbreakAttr)
}

// Flush discards any buffered input and output.
func (t *Terminal) Flush() error {
	if err := termios.Tcflush(t.input.Fd(), termios.TCIFLUSH); err != nil {
		return err
	}
	return termios.Tcflush(t.output.Fd(), termios.TCOFLUSH)
}
