package aggregate_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/okian/casetag/internal/domain/aggregate"
	"github.com/okian/casetag/internal/domain/merge"
	. "github.com/smartystreets/goconvey/convey"
)

// dataset builds a finalized output table where each row gets the given
// attack_vector cell.
func dataset(name, prefix string, cells ...string) aggregate.Dataset {
	header := merge.OutputHeader([]string{"Case", "Gist"})
	av := merge.Table{Header: header}.Column("attack_vector")
	t := merge.Table{Header: header}
	for i, cell := range cells {
		row := make([]string, len(header))
		row[0] = fmt.Sprintf("%s%d", prefix, i)
		row[1] = "narrative"
		row[av] = cell
		t.Rows = append(t.Rows, row)
	}
	return aggregate.Dataset{Name: name, Table: t}
}

func TestAggregate(t *testing.T) {
	Convey("Given two disjoint datasets sharing a tag", t, func() {
		a := dataset("a", "A", "phishing_link", "phishing_link, impersonation", "Phishing_Link ")
		b := dataset("b", "B", "phishing_link", "phishing_link", "malicious_app")

		Convey("When aggregated against ten cases", func() {
			rep, err := aggregate.Aggregate([]aggregate.Dataset{a, b}, 10)
			So(err, ShouldBeNil)
			cat, ok := rep.Category("attack_vector")
			So(ok, ShouldBeTrue)

			Convey("Then counts are case-level and percentages use the given total", func() {
				s, ok := cat.Tag("phishing_link")
				So(ok, ShouldBeTrue)
				So(s.Count, ShouldEqual, 5)
				So(s.Percentage, ShouldEqual, 50.0)
				So(cat.TotalCases, ShouldEqual, 10)
				So(cat.CasesWithTags, ShouldEqual, 6)
				So(cat.UniqueTags, ShouldEqual, 3)
			})

			Convey("Then tags are ordered by descending percentage", func() {
				So(cat.Distribution[0].Tag, ShouldEqual, "phishing_link")
				So(cat.Distribution[1].Tag, ShouldEqual, "impersonation")
				So(cat.Distribution[2].Tag, ShouldEqual, "malicious_app")
			})

			Convey("Then categories without any tag still report their totals", func() {
				crime, ok := rep.Category("crime_type")
				So(ok, ShouldBeTrue)
				So(crime.TotalCases, ShouldEqual, 10)
				So(crime.CasesWithTags, ShouldEqual, 0)
				So(crime.Distribution, ShouldBeEmpty)
			})
		})

		Convey("When the denominator changes", func() {
			r10, _ := aggregate.Aggregate([]aggregate.Dataset{a, b}, 10)
			r20, err := aggregate.Aggregate([]aggregate.Dataset{a, b}, 20)
			So(err, ShouldBeNil)

			Convey("Then percentages scale and counts stay put", func() {
				c10, _ := r10.Category("attack_vector")
				c20, _ := r20.Category("attack_vector")
				s10, _ := c10.Tag("phishing_link")
				s20, _ := c20.Tag("phishing_link")
				So(s20.Count, ShouldEqual, s10.Count)
				So(s20.Percentage, ShouldEqual, 25.0)
			})
		})

		Convey("When the denominator is not positive", func() {
			_, err := aggregate.Aggregate([]aggregate.Dataset{a}, 0)

			Convey("Then aggregation is refused", func() {
				So(errors.Is(err, aggregate.ErrInvalidDenominator), ShouldBeTrue)
			})
		})
	})

	Convey("Given a case present in two datasets", t, func() {
		a := dataset("a", "X", "phishing_link")
		b := dataset("b", "X", "phishing_link, malicious_app")

		Convey("Then it counts once per tag", func() {
			rep, err := aggregate.Aggregate([]aggregate.Dataset{a, b}, 4)
			So(err, ShouldBeNil)
			cat, _ := rep.Category("attack_vector")
			s, _ := cat.Tag("phishing_link")
			So(s.Count, ShouldEqual, 1)
			So(s.Percentage, ShouldEqual, 25.0)
			So(aggregate.DistinctCases([]aggregate.Dataset{a, b}), ShouldEqual, 1)
		})
	})

	Convey("Given rows with placeholder and blank cells", t, func() {
		ds := dataset("c", "C", "nan", "", "None, phishing_link", "phishing_link", "impersonation")

		Convey("Then unprocessed rows are ignored and placeholders dropped", func() {
			So(aggregate.DistinctCases([]aggregate.Dataset{ds}), ShouldEqual, 3)
			rep, err := aggregate.AnalyzeDataset(ds)
			So(err, ShouldBeNil)
			cat, _ := rep.Category("attack_vector")
			So(cat.TotalCases, ShouldEqual, 3)
			So(cat.UniqueTags, ShouldEqual, 2)
			s, _ := cat.Tag("phishing_link")
			So(s.Percentage, ShouldEqual, 66.67)
		})
	})

	Convey("Given a table without classification columns", t, func() {
		ds := aggregate.Dataset{Name: "raw", Table: merge.Table{Header: []string{"Case", "Gist"}, Rows: [][]string{{"1", "x"}}}}

		Convey("Then aggregation reports it", func() {
			_, err := aggregate.Aggregate([]aggregate.Dataset{ds}, 1)
			So(errors.Is(err, aggregate.ErrNoClassificationColumns), ShouldBeTrue)
		})
	})
}

func TestReportJSON(t *testing.T) {
	Convey("Given a report", t, func() {
		rep, err := aggregate.Aggregate([]aggregate.Dataset{dataset("a", "A", "b_tag", "a_tag, b_tag")}, 2)
		So(err, ShouldBeNil)

		Convey("Then encoding keeps the distribution order", func() {
			out, err := rep.Encode()
			So(err, ShouldBeNil)
			So(json.Valid(out), ShouldBeTrue)

			var decoded map[string]struct {
				TotalCases      int `json:"total_cases"`
				TagDistribution map[string]struct {
					Count      int     `json:"count"`
					Percentage float64 `json:"percentage"`
				} `json:"tag_distribution"`
			}
			So(json.Unmarshal(out, &decoded), ShouldBeNil)
			So(decoded["attack_vector"].TotalCases, ShouldEqual, 2)
			So(decoded["attack_vector"].TagDistribution["b_tag"].Percentage, ShouldEqual, 100.0)
			So(string(out), ShouldContainSubstring, `"b_tag": {`)
		})
	})
}
