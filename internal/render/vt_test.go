package render

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// virtualTerm is a minimal in-memory terminal used to verify repaints. It
// models the plain-text cell grid, cursor movement, erase sequences, line
// wrapping, wide glyphs and scrolling; styling sequences are ignored.
// Wrapping is eager, matching advanceCells rather than the deferred wrap
// of real terminals, so the renderer and this terminal agree on the cursor
// row even when a line ends exactly at the width.
type virtualTerm struct {
	width  int
	height int
	cells  [][]rune
	col    int
	row    int
	// scrollback holds lines pushed off the top, oldest first.
	scrollback []string
}

func newVirtualTerm(width, height int) *virtualTerm {
	vt := &virtualTerm{width: width, height: height}
	vt.cells = make([][]rune, height)
	for i := range vt.cells {
		vt.cells[i] = blankRow(width)
	}
	return vt
}

func blankRow(width int) []rune {
	row := make([]rune, width)
	for i := range row {
		row[i] = ' '
	}
	return row
}

func (vt *virtualTerm) Size() (int, int) { return vt.width, vt.height }

func (vt *virtualTerm) CursorPosition() (int, int, error) { return vt.col, vt.row, nil }

func (vt *virtualTerm) Write(p []byte) (int, error) {
	var state byte
	remaining := string(p)
	for len(remaining) > 0 {
		seq, w, n, newState := ansi.DecodeSequence(remaining, state, nil)
		state = newState
		remaining = remaining[n:]

		if w > 0 {
			for _, r := range seq {
				vt.putRune(r)
			}
			continue
		}

		switch {
		case seq == "\n":
			// The real console is a cooked-mode tty where ONLCR maps \n
			// to \r\n; advanceCells models the same, so mirror it here.
			vt.col = 0
			vt.lineFeed()
		case seq == "\r":
			vt.col = 0
		case seq == "\t":
			vt.col = (vt.col/8 + 1) * 8
			if vt.col >= vt.width {
				vt.col = 0
				vt.lineFeed()
			}
		case strings.HasPrefix(seq, "\x1b["):
			vt.applyCSI(seq)
		}
	}
	return len(p), nil
}

func (vt *virtualTerm) putRune(r rune) {
	w := runewidth.RuneWidth(r)
	if w == 0 {
		return
	}
	if vt.col+w > vt.width {
		vt.col = 0
		vt.lineFeed()
	}
	vt.cells[vt.row][vt.col] = r
	for i := 1; i < w && vt.col+i < vt.width; i++ {
		vt.cells[vt.row][vt.col+i] = 0
	}
	vt.col += w
}

func (vt *virtualTerm) lineFeed() {
	vt.row++
	if vt.row >= vt.height {
		vt.scrollback = append(vt.scrollback, rowString(vt.cells[0]))
		copy(vt.cells, vt.cells[1:])
		vt.cells[vt.height-1] = blankRow(vt.width)
		vt.row = vt.height - 1
	}
}

func (vt *virtualTerm) applyCSI(seq string) {
	body := seq[2:]
	if body == "" {
		return
	}
	final := body[len(body)-1]
	arg := 1
	if len(body) > 1 {
		if v, err := strconv.Atoi(body[:len(body)-1]); err == nil {
			arg = v
		}
	}
	switch final {
	case 'A':
		vt.row -= arg
		if vt.row < 0 {
			vt.row = 0
		}
	case 'B':
		vt.row += arg
		if vt.row >= vt.height {
			vt.row = vt.height - 1
		}
	case 'G':
		vt.col = arg - 1
		if vt.col < 0 {
			vt.col = 0
		}
	case 'J':
		if len(body) == 1 {
			arg = 0
		}
		if arg == 0 {
			vt.eraseToEnd()
		}
	case 'K':
		for i := vt.col; i < vt.width; i++ {
			vt.cells[vt.row][i] = ' '
		}
	}
}

func (vt *virtualTerm) eraseToEnd() {
	for i := vt.col; i < vt.width; i++ {
		vt.cells[vt.row][i] = ' '
	}
	for r := vt.row + 1; r < vt.height; r++ {
		vt.cells[r] = blankRow(vt.width)
	}
}

func rowString(cells []rune) string {
	var b strings.Builder
	for _, r := range cells {
		if r == 0 {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}

// Text returns everything visible plus whatever scrolled off, with trailing
// blank lines trimmed.
func (vt *virtualTerm) Text() string {
	lines := append([]string{}, vt.scrollback...)
	for _, row := range vt.cells {
		lines = append(lines, rowString(row))
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// Screen returns only the visible grid.
func (vt *virtualTerm) Screen() string {
	lines := make([]string, 0, vt.height)
	for _, row := range vt.cells {
		lines = append(lines, rowString(row))
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
