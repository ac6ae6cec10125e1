package report_test

import (
	"encoding/json"
	"errors"
	"testing"

	report "github.com/okian/paperlens/internal/domain/report"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFormatPercent(t *testing.T) {
	Convey("Given percentages to format", t, func() {
		Convey("Then they should always carry two decimals", func() {
			So(report.FormatPercent(83), ShouldEqual, "83.00")
			So(report.FormatPercent(83.456), ShouldEqual, "83.46")
			So(report.FormatPercent(12.5), ShouldEqual, "12.50")
			So(report.FormatPercent(0), ShouldEqual, "0.00")
			So(report.FormatPercent(100), ShouldEqual, "100.00")
		})

		Convey("Then exact ties should round away from zero", func() {
			So(report.FormatPercent(0.125), ShouldEqual, "0.13")
			So(report.FormatPercent(0.375), ShouldEqual, "0.38")
			So(report.FormatPercent(-0.125), ShouldEqual, "-0.13")
		})

		Convey("Then values stored just off a tie should round to the nearer side", func() {
			So(report.FormatPercent(2.675), ShouldEqual, "2.67")
			So(report.FormatPercent(1.115), ShouldEqual, "1.11")
			So(report.FormatPercent(1.005), ShouldEqual, "1.00")
		})

		Convey("Then an absent percent should format as blank", func() {
			So(report.Percent{}.Format(), ShouldEqual, "")
			So(report.PercentOf(7).Format(), ShouldEqual, "7.00")
		})
	})
}

func TestDecode(t *testing.T) {
	Convey("Given a well-formed report body", t, func() {
		body := []byte(`{
			"overall_percent": 12.5,
			"overall_category": "Low",
			"sections": {
				"Abstract": {
					"best_similarity_percent": 30,
					"category": "Moderate",
					"matches": [{"percent": 30, "title": "Paper X", "url": "http://x"}]
				},
				"Title": {"best_similarity_percent": 5, "category": "Low", "matches": []}
			}
		}`)

		r, err := report.Decode(body)

		Convey("Then every field should be populated", func() {
			So(err, ShouldBeNil)
			v, ok := r.OverallPercent.Value()
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 12.5)
			So(r.OverallCategory, ShouldEqual, report.Label("Low"))
			So(r.Sections, ShouldHaveLength, 2)

			abstract := r.Section(report.SectionAbstract)
			So(abstract, ShouldNotBeNil)
			So(abstract.Category.String(), ShouldEqual, "Moderate")
			So(abstract.HasMatches(), ShouldBeTrue)
			So(abstract.Matches[0].Title.String(), ShouldEqual, "Paper X")
			So(abstract.Matches[0].URL.String(), ShouldEqual, "http://x")
			So(r.Section(report.SectionTitle).HasMatches(), ShouldBeFalse)
			So(r.Section(report.SectionMethodology), ShouldBeNil)
		})
	})

	Convey("Given a body with wrong-typed fields", t, func() {
		body := []byte(`{
			"overall_percent": "41.5%",
			"overall_category": 3,
			"sections": {
				"Title": "not an object",
				"Abstract": {"best_similarity_percent": null, "category": ["x"], "matches": "none"},
				"Methodology": {"best_similarity_percent": true, "matches": [1, {"percent": "x", "title": 5}]}
			}
		}`)

		r, err := report.Decode(body)

		Convey("Then the report should decode with blanks", func() {
			So(err, ShouldBeNil)
			So(r.OverallPercent.Format(), ShouldEqual, "41.50")
			So(r.OverallCategory, ShouldEqual, report.Label(""))
			So(r.Section(report.SectionTitle), ShouldBeNil)

			abstract := r.Section(report.SectionAbstract)
			So(abstract, ShouldNotBeNil)
			So(abstract.BestSimilarityPercent.Valid(), ShouldBeFalse)
			So(abstract.Category, ShouldEqual, report.Label(""))
			So(abstract.Matches, ShouldBeEmpty)

			method := r.Section(report.SectionMethodology)
			So(method.BestSimilarityPercent.Valid(), ShouldBeFalse)
			So(method.Matches, ShouldHaveLength, 1)
			So(method.Matches[0].Percent.Valid(), ShouldBeFalse)
			So(method.Matches[0].Title, ShouldEqual, report.Label(""))
		})
	})

	Convey("Given an empty object", t, func() {
		r, err := report.Decode([]byte(`{}`))

		Convey("Then the report should be empty but usable", func() {
			So(err, ShouldBeNil)
			So(r.OverallPercent.Valid(), ShouldBeFalse)
			So(r.Sections, ShouldBeEmpty)
			So(r.Section(report.SectionTitle), ShouldBeNil)
		})
	})

	Convey("Given bodies that are not JSON objects", t, func() {
		for _, body := range []string{`null`, `[]`, `"text"`, `42`, `<html>`, ``} {
			_, err := report.Decode([]byte(body))
			So(errors.Is(err, report.ErrMalformed), ShouldBeTrue)
		}
	})

	Convey("Given a decoded report", t, func() {
		r, err := report.Decode([]byte(`{"overall_percent": 3, "sections": {"Title": {"matches": []}}}`))
		So(err, ShouldBeNil)

		Convey("When it is encoded again", func() {
			out, err := json.Marshal(r)
			So(err, ShouldBeNil)

			Convey("Then absent numbers should be written as null", func() {
				So(string(out), ShouldContainSubstring, `"overall_percent":3`)
				So(string(out), ShouldContainSubstring, `"best_similarity_percent":null`)
			})
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given a report that honours its contract", t, func() {
		r := &report.Report{
			OverallPercent:  report.PercentOf(10),
			OverallCategory: "Low",
			Sections: map[report.SectionName]*report.SectionResult{
				report.SectionTitle: {
					BestSimilarityPercent: report.PercentOf(10),
					Category:              "Low",
					Matches:               []report.Match{{Percent: report.PercentOf(10), Title: "A", URL: "http://a"}},
				},
			},
		}

		Convey("Then it should have no issues", func() {
			So(r.Validate(), ShouldBeEmpty)
		})
	})

	Convey("Given a report with violations", t, func() {
		r := &report.Report{
			OverallPercent: report.PercentOf(140),
			Sections: map[report.SectionName]*report.SectionResult{
				"Discussion": {},
				report.SectionAbstract: {
					BestSimilarityPercent: report.PercentOf(-1),
					Category:              "Low",
					Matches:               []report.Match{{Title: "no link"}},
				},
			},
		}

		issues := r.Validate()
		codes := make(map[string]int)
		for _, i := range issues {
			codes[i.Code]++
		}

		Convey("Then each violation should be listed", func() {
			So(codes[report.IssueOutOfRange], ShouldEqual, 2)
			So(codes[report.IssueMissingCategory], ShouldEqual, 1)
			So(codes[report.IssueUnknownSection], ShouldEqual, 1)
			So(codes[report.IssueMatchWithoutURL], ShouldEqual, 1)
			So(codes[report.IssueMissingOverall], ShouldEqual, 0)
		})
	})

	Convey("Given an empty report", t, func() {
		issues := (&report.Report{}).Validate()

		Convey("Then missing overall data should be flagged", func() {
			So(issues, ShouldContain, report.Issue{Code: report.IssueMissingOverall, Field: "overall_percent"})
			So(issues, ShouldContain, report.Issue{Code: report.IssueNoSections, Field: "sections"})
		})
	})

	Convey("Given a nil report", t, func() {
		var r *report.Report
		So(r.Validate(), ShouldBeNil)
	})
}

func TestToneFor(t *testing.T) {
	Convey("Given percentages across the bands", t, func() {
		So(report.ToneFor(report.Percent{}), ShouldEqual, report.ToneUnknown)
		So(report.ToneFor(report.PercentOf(0)), ShouldEqual, report.ToneLow)
		So(report.ToneFor(report.PercentOf(24.99)), ShouldEqual, report.ToneLow)
		So(report.ToneFor(report.PercentOf(25)), ShouldEqual, report.ToneLow)
		So(report.ToneFor(report.PercentOf(25.01)), ShouldEqual, report.ToneModerate)
		So(report.ToneFor(report.PercentOf(49.9)), ShouldEqual, report.ToneModerate)
		So(report.ToneFor(report.PercentOf(50)), ShouldEqual, report.ToneModerate)
		So(report.ToneFor(report.PercentOf(50.01)), ShouldEqual, report.ToneHigh)
	})
}
