// Package report holds the similarity report returned by the analysis service.
//
// Every field is optional. The producer is not trusted to honour its own
// contract, so decoding never fails on a missing or wrong-typed field; it
// fails only when the body is not a JSON object at all.
package report

// SectionName identifies a logical part of a paper.
type SectionName string

// Known sections, scored independently by the analysis service.
const (
	SectionTitle       SectionName = "Title"
	SectionAbstract    SectionName = "Abstract"
	SectionMethodology SectionName = "Methodology"
	SectionConclusions SectionName = "Conclusions"
)

// KnownSections lists the sections in display order.
var KnownSections = []SectionName{ //nolint:gochecknoglobals // fixed display order
	SectionTitle,
	SectionAbstract,
	SectionMethodology,
	SectionConclusions,
}

// Known reports whether n is one of KnownSections.
func (n SectionName) Known() bool {
	for _, k := range KnownSections {
		if k == n {
			return true
		}
	}
	return false
}

// Report is the full result of analyzing one document.
type Report struct {
	OverallPercent  Percent                        `json:"overall_percent"`
	OverallCategory Label                          `json:"overall_category"`
	Sections        map[SectionName]*SectionResult `json:"sections,omitempty"`
}

// SectionResult is the similarity breakdown of one section.
type SectionResult struct {
	BestSimilarityPercent Percent `json:"best_similarity_percent"`
	Category              Label   `json:"category"`
	Matches               []Match `json:"matches"`
}

// Match is one source document that resembles a section.
type Match struct {
	Percent Percent `json:"percent"`
	Title   Label   `json:"title"`
	URL     Label   `json:"url"`
}

// Section returns the result for name, or nil when the report omits it.
// It is safe to call on a nil Report.
func (r *Report) Section(name SectionName) *SectionResult {
	if r == nil || r.Sections == nil {
		return nil
	}
	return r.Sections[name]
}

// HasMatches reports whether the section lists at least one match.
// It is safe to call on a nil SectionResult.
func (s *SectionResult) HasMatches() bool {
	return s != nil && len(s.Matches) > 0
}
