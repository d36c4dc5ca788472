package render

import (
	"fmt"
	"time"

	"github.com/charmbracelet/x/ansi"
)

const (
	defaultFastDelay = 20 * time.Millisecond
	defaultSlowDelay = 50 * time.Millisecond
)

// Styler turns accumulated raw text into the styled form that goes on
// screen. It must be a pure function of its input: the renderer diffs
// successive outputs, so the same prefix must style the same way.
type Styler func(raw string) string

// Options configures a Renderer.
type Options struct {
	// Styler styles raw text before painting. Nil paints raw text as-is.
	Styler Styler
	// FinalStyler, when set, restyles the whole segment once in Finish,
	// replacing the incremental styling with the completed form.
	FinalStyler Styler
	// Writes, when set, lets the renderer detect console writes made by
	// other components between repaints.
	Writes *WriteCounter
	// FastDelay paces repaints that rewrite from a line start, SlowDelay
	// paces append-only repaints. Zero values use ~20ms and ~50ms.
	FastDelay time.Duration
	SlowDelay time.Duration
}

// Renderer incrementally paints a growing piece of text at a fixed anchor,
// rewriting only the suffix that changed since the previous repaint.
type Renderer struct {
	console     Console
	styler      Styler
	finalStyler Styler
	writes      *WriteCounter

	fastDelay time.Duration
	slowDelay time.Duration
	now       func() time.Time
	sleep     func(time.Duration)

	active    bool
	anchorCol int
	anchorRow int
	curCol    int
	curRow    int
	frozen    int    // raw bytes snapshotted behind an external write
	rawSeen   int    // raw bytes covered by the last repaint
	styled    string // styled form of the live segment on screen
	lastAccum string // raw text from the last Refresh, for the final restyle
	gen       uint64
	lastPaint time.Time
}

// New returns a renderer painting on the given console.
func New(console Console, opts Options) *Renderer {
	r := &Renderer{
		console:     console,
		styler:      opts.Styler,
		finalStyler: opts.FinalStyler,
		writes:      opts.Writes,
		fastDelay:   opts.FastDelay,
		slowDelay:   opts.SlowDelay,
		now:         time.Now,
		sleep:       time.Sleep,
	}
	if r.fastDelay <= 0 {
		r.fastDelay = defaultFastDelay
	}
	if r.slowDelay <= 0 {
		r.slowDelay = defaultSlowDelay
	}
	return r
}

// Refresh repaints the screen so it shows accumulated, which must contain
// everything passed to the previous Refresh as a prefix. Only the changed
// suffix is rewritten; unchanged cells are left alone.
func (r *Renderer) Refresh(accumulated string) error {
	width, height := r.console.Size()

	if !r.active {
		if err := r.anchor(); err != nil {
			return err
		}
	} else if r.writes != nil && r.writes.Generation() != r.gen {
		// Someone else wrote to the console. Freeze what is already on
		// screen as a completed segment and continue below it.
		r.frozen = r.rawSeen
		r.styled = ""
		if err := r.anchor(); err != nil {
			return err
		}
	}

	r.lastAccum = accumulated
	frozen := r.frozen
	if frozen > len(accumulated) {
		frozen = len(accumulated)
	}
	segment := accumulated[frozen:]
	newStyled := segment
	if r.styler != nil {
		newStyled = r.styler(segment)
	}

	j := commonPrefixLen(r.styled, newStyled)
	fullLine := false
	if containsStyleReset(r.styled[j:]) {
		// The discarded tail reset styling mid-line; the kept prefix of
		// that line may depend on codes we are about to erase. Rewrite
		// the whole logical line.
		j = logicalLineStart(newStyled, j)
		fullLine = true
	}

	if j == len(r.styled) && j == len(newStyled) {
		r.rawSeen = len(accumulated)
		return nil
	}

	tcol, trow := advanceCells(newStyled[:j], r.anchorCol, r.anchorRow, width)
	suffix := newStyled[j:]

	if trow < 0 {
		// Part of the rewrite scrolled off the top. Skip what cannot be
		// painted and start at the first visible cell.
		off, c, row := splitAtRow(suffix, tcol, trow, width)
		suffix = suffix[off:]
		tcol, trow = c, row
		if trow < 0 {
			tcol, trow = 0, 0
			suffix = ""
		}
	}

	var move string
	switch {
	case trow < r.curRow:
		move = ansi.CursorUp(r.curRow - trow)
	case trow > r.curRow:
		move = ansi.CursorDown(trow - r.curRow)
	}
	move += ansi.CursorHorizontalAbsolute(tcol + 1)
	move += ansi.EraseDisplay(0)

	if _, err := r.console.Write([]byte(move + suffix)); err != nil {
		return fmt.Errorf("repainting: %w", err)
	}

	endCol, endRow := advanceCells(suffix, tcol, trow, width)
	if endRow >= height {
		// The write scrolled the screen; everything above shifted up.
		d := endRow - (height - 1)
		r.anchorRow -= d
		endRow -= d
	}
	r.curCol, r.curRow = endCol, endRow
	r.styled = newStyled
	r.rawSeen = len(accumulated)

	delay := r.slowDelay
	if fullLine {
		delay = r.fastDelay
	}
	if since := r.now().Sub(r.lastPaint); since < delay {
		r.sleep(delay - since)
	}
	r.lastPaint = r.now()
	return nil
}

// Finish ends the current segment, leaving the cursor on a fresh line after
// the rendered content. With a FinalStyler configured the segment is
// repainted once in its completed form first. The next Refresh anchors
// wherever the cursor is then.
func (r *Renderer) Finish() error {
	if !r.active {
		return nil
	}
	if r.finalStyler != nil && r.lastAccum != "" {
		saved := r.styler
		r.styler = r.finalStyler
		err := r.Refresh(r.lastAccum)
		r.styler = saved
		if err != nil {
			return err
		}
	}
	r.active = false
	r.frozen = 0
	r.rawSeen = 0
	r.styled = ""
	r.lastAccum = ""
	if _, err := r.console.Write([]byte("\n")); err != nil {
		return fmt.Errorf("finishing render: %w", err)
	}
	return nil
}

func (r *Renderer) anchor() error {
	col, row, err := r.console.CursorPosition()
	if err != nil {
		return fmt.Errorf("anchoring renderer: %w", err)
	}
	r.anchorCol, r.anchorRow = col, row
	r.curCol, r.curRow = col, row
	r.active = true
	if r.writes != nil {
		r.gen = r.writes.Generation()
	}
	return nil
}
