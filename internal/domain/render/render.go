// Package render projects a similarity report into display-ready values.
//
// Render is pure: it never mutates the report, never fails, and returns
// equal views for equal reports. The writers in this package only lay the
// view out; every formatting decision is made here.
package render

import (
	"github.com/okian/paperlens/internal/domain/report"
)

// Fixed display text.
const (
	OverallHeading = "Overall Similarity"
	NoMatches      = "No close matches found."
	LinkLabel      = "Open"

	ColumnPercent = "% Match"
	ColumnTitle   = "Title"
	ColumnLink    = "Link"
)

// View is the display form of a report. A nil *View means no report area.
type View struct {
	Overall  Score     `json:"overall"`
	Sections []Section `json:"sections"`
}

// Score is a formatted percentage with its category and tone.
// Percent is empty when the value was absent.
type Score struct {
	Percent  string      `json:"percent"`
	Category string      `json:"category"`
	Tone     report.Tone `json:"tone"`
}

// PercentLabel returns the percentage followed by a percent sign, or "".
func (s Score) PercentLabel() string {
	return withSign(s.Percent)
}

// Section is one block of the report.
type Section struct {
	Name    string `json:"name"`
	Best    Score  `json:"best"`
	Matches []Row  `json:"matches,omitempty"`
	// Placeholder is set instead of Matches when the section has none.
	Placeholder string `json:"placeholder,omitempty"`
}

// HasMatches reports whether the block shows a table.
func (s Section) HasMatches() bool { return len(s.Matches) > 0 }

// Row is one line of a match table.
type Row struct {
	Percent   string      `json:"percent"`
	Title     string      `json:"title"`
	URL       string      `json:"url"`
	LinkLabel string      `json:"link_label"`
	Tone      report.Tone `json:"tone"`
}

// PercentLabel returns the percentage followed by a percent sign, or "".
func (r Row) PercentLabel() string {
	return withSign(r.Percent)
}

// Render builds the view for r. A nil report yields a nil view.
func Render(r *report.Report) *View {
	if r == nil {
		return nil
	}

	v := &View{
		Overall:  score(r.OverallPercent, r.OverallCategory),
		Sections: make([]Section, 0, len(report.KnownSections)),
	}
	for _, name := range report.KnownSections {
		s := r.Section(name)
		if s == nil {
			continue
		}
		v.Sections = append(v.Sections, section(name, s))
	}
	return v
}

func section(name report.SectionName, s *report.SectionResult) Section {
	out := Section{
		Name: string(name),
		Best: score(s.BestSimilarityPercent, s.Category),
	}
	if !s.HasMatches() {
		out.Placeholder = NoMatches
		return out
	}

	out.Matches = make([]Row, len(s.Matches))
	for i, m := range s.Matches {
		out.Matches[i] = Row{
			Percent:   m.Percent.Format(),
			Title:     m.Title.String(),
			URL:       m.URL.String(),
			LinkLabel: LinkLabel,
			Tone:      report.ToneFor(m.Percent),
		}
	}
	return out
}

func score(p report.Percent, category report.Label) Score {
	return Score{
		Percent:  p.Format(),
		Category: category.String(),
		Tone:     report.ToneFor(p),
	}
}

func withSign(p string) string {
	if p == "" {
		return ""
	}
	return p + "%"
}
