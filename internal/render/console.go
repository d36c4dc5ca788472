package render

import (
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/term"
)

// Console is the terminal surface the renderer paints on. Coordinates are
// zero-based cells, origin at the top-left of the visible screen.
type Console interface {
	Write(p []byte) (int, error)
	// Size returns the visible width and height in cells.
	Size() (width, height int)
	// CursorPosition reports the current cursor cell.
	CursorPosition() (col, row int, err error)
}

// WriteCounter tracks writes made to the console by anything other than the
// renderer. The renderer compares generations between repaints and re-anchors
// when someone else has touched the screen.
type WriteCounter struct {
	gen atomic.Uint64
}

// Bump records one external write.
func (c *WriteCounter) Bump() { c.gen.Add(1) }

// Generation returns the current write generation.
func (c *WriteCounter) Generation() uint64 { return c.gen.Load() }

// ttyConsole is the real terminal. Size comes from the tty, the cursor
// position from a DSR query answered on stdin.
type ttyConsole struct {
	out *os.File
	in  *os.File
}

// NewTTYConsole returns a Console backed by the process terminal.
func NewTTYConsole() Console {
	return &ttyConsole{out: os.Stdout, in: os.Stdin}
}

func (t *ttyConsole) Write(p []byte) (int, error) { return t.out.Write(p) }

func (t *ttyConsole) Size() (int, int) {
	w, h, err := term.GetSize(int(t.out.Fd()))
	if err != nil || w <= 0 {
		return 80, 24
	}
	return w, h
}

// CursorPosition asks the terminal where the cursor is via the DSR escape
// and parses the "ESC[row;colR" reply. The tty is put in raw mode for the
// duration of the exchange so the reply does not echo.
func (t *ttyConsole) CursorPosition() (int, int, error) {
	fd := int(t.in.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return 0, 0, fmt.Errorf("querying cursor: %w", err)
	}
	defer term.Restore(fd, oldState)

	if _, err := t.out.WriteString("\x1b[6n"); err != nil {
		return 0, 0, fmt.Errorf("querying cursor: %w", err)
	}

	// Reply is ESC [ row ; col R. Read byte-wise until the terminator;
	// terminals answer this quickly so a bounded read is enough.
	buf := make([]byte, 0, 16)
	b := make([]byte, 1)
	for len(buf) < 32 {
		n, err := t.in.Read(b)
		if err != nil {
			return 0, 0, fmt.Errorf("reading cursor reply: %w", err)
		}
		if n == 0 {
			continue
		}
		buf = append(buf, b[0])
		if b[0] == 'R' {
			break
		}
	}

	var row, col int
	if _, err := fmt.Sscanf(string(buf), "\x1b[%d;%dR", &row, &col); err != nil {
		return 0, 0, fmt.Errorf("parsing cursor reply %q: %w", buf, err)
	}
	return col - 1, row - 1, nil
}
