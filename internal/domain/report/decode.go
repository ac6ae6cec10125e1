package report

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed marks a body that is not a JSON object.
var ErrMalformed = errors.New("malformed report")

type object map[string]json.RawMessage

// Decode parses an analysis service response body.
func Decode(data []byte) (*Report, error) {
	r := &Report{}
	if err := r.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return r, nil
}

// UnmarshalJSON requires a JSON object and tolerates anything inside it.
func (r *Report) UnmarshalJSON(data []byte) error {
	var top object
	if err := json.Unmarshal(data, &top); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if top == nil {
		return fmt.Errorf("%w: body is null", ErrMalformed)
	}

	*r = Report{}
	_ = r.OverallPercent.UnmarshalJSON(top["overall_percent"])
	_ = r.OverallCategory.UnmarshalJSON(top["overall_category"])

	var sections object
	if raw, ok := top["sections"]; ok && json.Unmarshal(raw, &sections) == nil && len(sections) > 0 {
		r.Sections = make(map[SectionName]*SectionResult, len(sections))
		for name, raw := range sections {
			if s := decodeSection(raw); s != nil {
				r.Sections[SectionName(name)] = s
			}
		}
	}
	return nil
}

// decodeSection returns nil when raw is not an object.
func decodeSection(raw json.RawMessage) *SectionResult {
	var obj object
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil
	}

	s := &SectionResult{}
	_ = s.BestSimilarityPercent.UnmarshalJSON(obj["best_similarity_percent"])
	_ = s.Category.UnmarshalJSON(obj["category"])

	var matches []json.RawMessage
	if raw, ok := obj["matches"]; ok && json.Unmarshal(raw, &matches) == nil {
		for _, m := range matches {
			if match, ok := decodeMatch(m); ok {
				s.Matches = append(s.Matches, match)
			}
		}
	}
	return s
}

func decodeMatch(raw json.RawMessage) (Match, bool) {
	var obj object
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return Match{}, false
	}

	var m Match
	_ = m.Percent.UnmarshalJSON(obj["percent"])
	_ = m.Title.UnmarshalJSON(obj["title"])
	_ = m.URL.UnmarshalJSON(obj["url"])
	return m, true
}
