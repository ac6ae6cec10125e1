package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/muesli/reflow/wordwrap"

	"github.com/okian/paperlens/internal/domain/report"
)

// DefaultWidth is the terminal width used when TextOptions.Width is unset.
const DefaultWidth = 80

const (
	indent     = "  "
	percentCol = 9 // "100.00%" plus padding
	minWrap    = 20
)

// TextOptions controls WriteText.
type TextOptions struct {
	// Width wraps match titles; values below a small minimum are raised.
	Width int
	// Color enables ANSI colours keyed by tone.
	Color bool
}

type textWriter struct {
	w     io.Writer
	width int
	tones map[report.Tone]*color.Color
	bold  *color.Color
	err   error
}

// WriteText writes a terminal rendition of v. A nil view writes nothing.
func WriteText(w io.Writer, v *View, opts TextOptions) error {
	if v == nil {
		return nil
	}

	tw := newTextWriter(w, opts)
	tw.printf("%s: %s", tw.bold.Sprint(OverallHeading), tw.tone(v.Overall.Tone, v.Overall.PercentLabel()))
	if v.Overall.Category != "" {
		tw.printf("  (%s)", v.Overall.Category)
	}
	tw.printf("\n")

	for _, s := range v.Sections {
		tw.section(s)
	}
	return tw.err
}

func newTextWriter(w io.Writer, opts TextOptions) *textWriter {
	width := opts.Width
	if width <= 0 {
		width = DefaultWidth
	}

	tw := &textWriter{
		w:     w,
		width: width,
		bold:  color.New(color.Bold),
		tones: map[report.Tone]*color.Color{
			report.ToneLow:      color.New(color.FgGreen),
			report.ToneModerate: color.New(color.FgYellow),
			report.ToneHigh:     color.New(color.FgRed, color.Bold),
		},
	}

	all := []*color.Color{tw.bold}
	for _, c := range tw.tones {
		all = append(all, c)
	}
	for _, c := range all {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return tw
}

func (tw *textWriter) section(s Section) {
	tw.printf("\n%s", tw.bold.Sprint(s.Name))
	if p := s.Best.PercentLabel(); p != "" {
		tw.printf("  %s", tw.tone(s.Best.Tone, p))
	}
	if s.Best.Category != "" {
		tw.printf("  (%s)", s.Best.Category)
	}
	tw.printf("\n")

	if !s.HasMatches() {
		tw.printf("%s%s\n", indent, s.Placeholder)
		return
	}

	tw.printf("%s%-*s%s\n", indent, percentCol, ColumnPercent, ColumnTitle)
	wrap := tw.width - len(indent) - percentCol
	if wrap < minWrap {
		wrap = minWrap
	}
	pad := strings.Repeat(" ", len(indent)+percentCol)

	for _, m := range s.Matches {
		lines := strings.Split(wordwrap.String(m.Title, wrap), "\n")
		// Pad before colouring so escape codes do not skew the column.
		pct := tw.tone(m.Tone, fmt.Sprintf("%-*s", percentCol, m.PercentLabel()))
		tw.printf("%s%s%s\n", indent, pct, lines[0])
		for _, l := range lines[1:] {
			tw.printf("%s%s\n", pad, l)
		}
		if m.URL != "" {
			tw.printf("%s%s: %s\n", pad, m.LinkLabel, m.URL)
		}
	}
}

func (tw *textWriter) tone(t report.Tone, s string) string {
	if c, ok := tw.tones[t]; ok {
		return c.Sprint(s)
	}
	return s
}

func (tw *textWriter) printf(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.w, format, args...)
}
