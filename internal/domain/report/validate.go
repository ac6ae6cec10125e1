package report

import "fmt"

// Issue codes.
const (
	IssueMissingOverall  = "missing_overall_percent"
	IssueMissingCategory = "missing_category"
	IssueOutOfRange      = "percent_out_of_range"
	IssueUnknownSection  = "unknown_section"
	IssueNoSections      = "no_sections"
	IssueMatchWithoutURL = "match_without_url"
)

// Issue describes one place where a report departs from the producer contract.
type Issue struct {
	Code  string `json:"code"`
	Field string `json:"field"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Code)
}

// Validate lists contract violations. A report with issues still renders;
// the list exists for logging and metrics.
func (r *Report) Validate() []Issue {
	if r == nil {
		return nil
	}

	var issues []Issue
	add := func(code, field string) { issues = append(issues, Issue{Code: code, Field: field}) }
	checkRange := func(p Percent, field string) {
		if v, ok := p.Value(); ok && (v < 0 || v > 100) {
			add(IssueOutOfRange, field)
		}
	}

	if !r.OverallPercent.Valid() {
		add(IssueMissingOverall, "overall_percent")
	}
	checkRange(r.OverallPercent, "overall_percent")
	if r.OverallCategory == "" {
		add(IssueMissingCategory, "overall_category")
	}

	if len(r.Sections) == 0 {
		add(IssueNoSections, "sections")
	}
	for name := range r.Sections {
		if !name.Known() {
			add(IssueUnknownSection, "sections."+string(name))
		}
	}

	// Known sections in display order keep the output deterministic.
	for _, name := range KnownSections {
		s := r.Section(name)
		if s == nil {
			continue
		}
		prefix := "sections." + string(name)
		checkRange(s.BestSimilarityPercent, prefix+".best_similarity_percent")
		if s.Category == "" {
			add(IssueMissingCategory, prefix+".category")
		}
		for i, m := range s.Matches {
			field := fmt.Sprintf("%s.matches[%d]", prefix, i)
			checkRange(m.Percent, field+".percent")
			if m.URL == "" {
				add(IssueMatchWithoutURL, field+".url")
			}
		}
	}
	return issues
}
