package render

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// advanceCells simulates writing styled text to the terminal starting at the
// given cell, returning the cell the cursor lands on. Escape sequences occupy
// no cells; wide glyphs occupy the width DecodeSequence reports; logical lines
// wrap eagerly at the terminal width.
//
// Eager wrap means a glyph that would cross the right edge starts the next
// row immediately. Real terminals defer that wrap until the next glyph is
// written, so after a line ending exactly at the width this model places the
// cursor one row below where the terminal still holds it.
func advanceCells(styled string, col, row, width int) (int, int) {
	var state byte
	remaining := styled
	for len(remaining) > 0 {
		seq, w, n, newState := ansi.DecodeSequence(remaining, state, nil)
		state = newState
		remaining = remaining[n:]

		if w == 0 {
			switch seq {
			case "\n":
				row++
				col = 0
			case "\r":
				col = 0
			case "\t":
				col = (col/8 + 1) * 8
				if width > 0 && col >= width {
					row++
					col = 0
				}
			}
			continue
		}

		if width > 0 && col+w > width {
			row++
			col = 0
		}
		col += w
	}
	return col, row
}

// splitAtRow walks styled text from the given cell and returns the byte offset
// of the first content that lands on or below row zero, with the cell it
// starts at. Content above the screen cannot be repainted, so callers drop
// the prefix this reports.
func splitAtRow(styled string, col, row, width int) (offset, atCol, atRow int) {
	if row >= 0 {
		return 0, col, row
	}
	var state byte
	offset = 0
	remaining := styled
	for len(remaining) > 0 && row < 0 {
		seq, w, n, newState := ansi.DecodeSequence(remaining, state, nil)
		state = newState

		if w == 0 {
			switch seq {
			case "\n":
				row++
				col = 0
			case "\r":
				col = 0
			case "\t":
				col = (col/8 + 1) * 8
				if width > 0 && col >= width {
					row++
					col = 0
				}
			}
			remaining = remaining[n:]
			offset += n
			continue
		}

		if width > 0 && col+w > width {
			row++
			col = 0
			if row >= 0 {
				// The glyph itself is the first visible content.
				break
			}
		}
		col += w
		remaining = remaining[n:]
		offset += n
	}
	return offset, col, row
}

// commonPrefixLen returns the length of the longest common prefix of old and
// new, backed off so it never splits an escape sequence or a multi-byte
// character in new.
func commonPrefixLen(old, new string) int {
	limit := len(old)
	if len(new) < limit {
		limit = len(new)
	}
	j := 0
	for j < limit && old[j] == new[j] {
		j++
	}
	if j == 0 {
		return 0
	}

	// Re-walk new in sequence units and keep the last boundary at or
	// before the raw byte prefix.
	var state byte
	boundary := 0
	remaining := new
	consumed := 0
	for len(remaining) > 0 {
		_, _, n, newState := ansi.DecodeSequence(remaining, state, nil)
		if consumed+n > j {
			break
		}
		state = newState
		consumed += n
		boundary = consumed
		remaining = remaining[n:]
	}
	return boundary
}

// containsStyleReset reports whether the styled text carries an SGR reset,
// meaning earlier styling on the same logical line can no longer be
// reconstructed from this point on.
func containsStyleReset(styled string) bool {
	var state byte
	remaining := styled
	for len(remaining) > 0 {
		seq, w, n, newState := ansi.DecodeSequence(remaining, state, nil)
		state = newState
		remaining = remaining[n:]
		if w != 0 || len(seq) < 3 || !strings.HasPrefix(seq, "\x1b[") || seq[len(seq)-1] != 'm' {
			continue
		}
		params := seq[2 : len(seq)-1]
		if params == "" || params == "0" || strings.HasPrefix(params, "0;") {
			return true
		}
	}
	return false
}

// logicalLineStart returns the byte offset of the start of the logical line
// containing offset j in styled.
func logicalLineStart(styled string, j int) int {
	return strings.LastIndexByte(styled[:j], '\n') + 1
}
