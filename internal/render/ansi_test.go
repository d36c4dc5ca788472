package render

import "testing"

func TestCommonPrefixLenStopsAtSequenceBoundaries(t *testing.T) {
	old := "\x1b[2mthink\x1b[0m"
	new := "\x1b[2mthis\x1b[0m"
	j := commonPrefixLen(old, new)
	// The raw byte prefix ends inside "thi"; the boundary must not split
	// the leading escape sequence.
	if j != len("\x1b[2mthi") {
		t.Fatalf("commonPrefixLen = %d, want %d", j, len("\x1b[2mthi"))
	}
}

func TestCommonPrefixLenDoesNotSplitRunes(t *testing.T) {
	old := "漢字"
	new := "漢学"
	j := commonPrefixLen(old, new)
	if j != len("漢") {
		t.Fatalf("commonPrefixLen = %d, want %d", j, len("漢"))
	}
}

func TestContainsStyleReset(t *testing.T) {
	if !containsStyleReset("tail\x1b[0m more") {
		t.Fatal("explicit reset not detected")
	}
	if !containsStyleReset("\x1b[m") {
		t.Fatal("bare reset not detected")
	}
	if containsStyleReset("\x1b[2mdim text") {
		t.Fatal("non-reset styling reported as reset")
	}
}

func TestAdvanceCellsWrapsAndCountsWideGlyphs(t *testing.T) {
	col, row := advanceCells("abc\ndef", 0, 0, 10)
	if col != 3 || row != 1 {
		t.Fatalf("got (%d,%d), want (3,1)", col, row)
	}
	// Five double-width glyphs fill a 10-cell row exactly; the next glyph
	// wraps.
	col, row = advanceCells("漢漢漢漢漢字", 0, 0, 10)
	if col != 2 || row != 1 {
		t.Fatalf("wide glyphs: got (%d,%d), want (2,1)", col, row)
	}
	// Escape sequences take no cells.
	col, row = advanceCells("\x1b[2mab\x1b[0m", 0, 0, 10)
	if col != 2 || row != 0 {
		t.Fatalf("styled: got (%d,%d), want (2,0)", col, row)
	}
}
