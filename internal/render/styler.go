package render

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// PlainStyler paints raw text unchanged.
func PlainStyler(raw string) string { return raw }

// SupportsColor reports whether the attached terminal renders ANSI color.
func SupportsColor() bool {
	return termenv.NewOutput(os.Stdout).ColorProfile() != termenv.Ascii
}

// ThinkingStyler dims reasoning regions delimited by <Thinking> marker
// lines, leaving answer text untouched.
func ThinkingStyler() Styler {
	if !SupportsColor() {
		return PlainStyler
	}
	style := lipgloss.NewStyle().Faint(true)
	return func(raw string) string {
		lines := strings.Split(raw, "\n")
		in := false
		for i, line := range lines {
			switch {
			case line == "<Thinking>":
				in = true
				lines[i] = style.Render(line)
			case line == "</Thinking>":
				in = false
				lines[i] = style.Render(line)
			case in && line != "":
				lines[i] = style.Render(line)
			}
		}
		return strings.Join(lines, "\n")
	}
}

// MarkdownStyler renders text as terminal markdown at the given wrap width.
// Glamour drops the thinking marker lines, so this runs only as the final
// restyle of a completed message; mid-stream repaints use ThinkingStyler.
func MarkdownStyler(width int) (Styler, error) {
	opts := []glamour.TermRendererOption{
		glamour.WithWordWrap(width),
	}
	if SupportsColor() {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle("notty"))
	}
	tr, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return func(raw string) string {
		out, err := tr.Render(raw)
		if err != nil {
			return raw
		}
		return strings.TrimRight(out, "\n") + "\n"
	}, nil
}
