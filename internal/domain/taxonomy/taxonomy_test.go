package taxonomy_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/casetag/internal/domain/model"
	"github.com/okian/casetag/internal/domain/taxonomy"
	. "github.com/smartystreets/goconvey/convey"
)

const canonical = `{
  "crime_type": {
    "financial_fraud": ["investment_scam", "job_fraud"],
    "identity_crimes": ["sim_card_fraud"]
  },
  "attack_vector": {
    "technical": ["phishing_link"]
  }
}`

func TestParse(t *testing.T) {
	Convey("Given the canonical shape", t, func() {
		tx, err := taxonomy.Parse([]byte(canonical))

		Convey("Then categories keep document order", func() {
			So(err, ShouldBeNil)
			So(tx.Categories(), ShouldResemble, []string{"crime_type", "attack_vector"})
			So(tx.Enveloped(), ShouldBeFalse)
			So(tx.TagCount(), ShouldEqual, 4)
		})

		Convey("Then flatten lists every tag across subcategories in order", func() {
			want := map[string][]string{
				"crime_type":    {"investment_scam", "job_fraud", "sim_card_fraud"},
				"attack_vector": {"phishing_link"},
			}
			So(cmp.Diff(want, tx.Flatten()), ShouldBeEmpty)
			So(tx.FlattenOrdered()[0].Name, ShouldEqual, "crime_type")
		})
	})

	Convey("Given an enveloped document", t, func() {
		tx, err := taxonomy.Parse([]byte(`{"schema": ` + canonical + `}`))

		Convey("Then it is unwrapped transparently", func() {
			So(err, ShouldBeNil)
			So(tx.Enveloped(), ShouldBeTrue)
			So(tx.Contains("crime_type", "job_fraud"), ShouldBeTrue)
		})

		Convey("Then encoding restores the envelope", func() {
			out, err := tx.Encode()
			So(err, ShouldBeNil)
			again, err := taxonomy.Parse(out)
			So(err, ShouldBeNil)
			So(again.Enveloped(), ShouldBeTrue)
			So(cmp.Diff(tx.Flatten(), again.Flatten()), ShouldBeEmpty)
		})
	})

	Convey("Given the flat list and lone string shapes", t, func() {
		tx, err := taxonomy.Parse([]byte(`{
			"crime_type": ["job_fraud", "loan_fraud"],
			"attack_vector": {"social": "impersonation"}
		}`))

		Convey("Then both normalize into subcategory lists", func() {
			So(err, ShouldBeNil)
			cat, ok := tx.Category("crime_type")
			So(ok, ShouldBeTrue)
			So(cat.Subcategories, ShouldHaveLength, 1)
			So(cat.Subcategories[0].Name, ShouldEqual, taxonomy.GeneralSubcategory)
			So(tx.Flatten()["attack_vector"], ShouldResemble, []string{"impersonation"})
		})
	})

	Convey("Given malformed documents", t, func() {
		bad := []string{
			``,
			`not json`,
			`[]`,
			`{}`,
			`{"schema": []}`,
			`{"crime_type": 12}`,
			`{"crime_type": {"a": [1, 2]}}`,
			`{"crime_type": {"a": ["x"]}} trailing`,
			`{"crime_type": {"a": ["x"], "b": ["x"]}}`,
		}
		for _, doc := range bad {
			_, err := taxonomy.Parse([]byte(doc))
			So(errors.Is(err, taxonomy.ErrSchemaMalformed), ShouldBeTrue)
		}
	})

	Convey("Given a tag repeated across subcategories", t, func() {
		doc := []byte(`{"crime_type": {"a": ["x"], "b": ["x", "y"]}}`)

		Convey("Then strict parsing names the duplicate", func() {
			_, err := taxonomy.Parse(doc)
			So(errors.Is(err, taxonomy.ErrDuplicateTag), ShouldBeTrue)
		})

		Convey("Then lenient parsing drops it", func() {
			tx, err := taxonomy.ParseLenient(doc)
			So(err, ShouldBeNil)
			So(tx.Flatten()["crime_type"], ShouldResemble, []string{"x", "y"})
		})
	})
}

func TestEncodeStable(t *testing.T) {
	Convey("Given an encoded taxonomy", t, func() {
		tx, err := taxonomy.Parse([]byte(canonical))
		So(err, ShouldBeNil)
		first, err := tx.Encode()
		So(err, ShouldBeNil)

		Convey("Then parse and encode again yields identical bytes", func() {
			again, err := taxonomy.Parse(first)
			So(err, ShouldBeNil)
			second, err := again.Encode()
			So(err, ShouldBeNil)
			So(string(second), ShouldEqual, string(first))
		})
	})
}

func TestMergeNewTags(t *testing.T) {
	Convey("Given a taxonomy and observed tags", t, func() {
		tx, err := taxonomy.Parse([]byte(canonical))
		So(err, ShouldBeNil)

		Convey("When every observed tag already exists somewhere in its category", func() {
			merged, changes := tx.MergeNewTags(map[string][]string{
				"crime_type":    {"sim_card_fraud", "job_fraud"},
				"attack_vector": {"phishing_link", " ", "nan"},
			})

			Convey("Then nothing changes", func() {
				So(changes.Empty(), ShouldBeTrue)
				before, _ := tx.Encode()
				after, _ := merged.Encode()
				So(string(after), ShouldEqual, string(before))
			})
		})

		Convey("When new tags are observed", func() {
			merged, changes := tx.MergeNewTags(map[string][]string{
				"crime_type":          {"upi_fraud", "job_fraud", "digital_arrest", "upi_fraud"},
				"geographic_temporal": {"cross_border"},
			})

			Convey("Then they land sorted in the other subcategory", func() {
				So(changes.Total(), ShouldEqual, 3)
				So(changes["crime_type"], ShouldResemble, []string{"digital_arrest", "upi_fraud"})
				cat, _ := merged.Category("crime_type")
				last := cat.Subcategories[len(cat.Subcategories)-1]
				So(last.Name, ShouldEqual, taxonomy.OtherSubcategory)
				So(last.Tags, ShouldResemble, []string{"digital_arrest", "upi_fraud"})
			})

			Convey("Then a missing category is created", func() {
				So(merged.Contains("geographic_temporal", "cross_border"), ShouldBeTrue)
				So(merged.Categories()[2], ShouldEqual, "geographic_temporal")
			})

			Convey("Then the input taxonomy is untouched", func() {
				So(tx.Contains("crime_type", "upi_fraud"), ShouldBeFalse)
			})

			Convey("Then a second merge of the same tags is a no-op", func() {
				_, again := merged.MergeNewTags(map[string][]string{"crime_type": {"upi_fraud"}})
				So(again.Empty(), ShouldBeTrue)
			})
		})
	})
}

func TestFallback(t *testing.T) {
	Convey("Given the fallback taxonomy", t, func() {
		tx := taxonomy.Fallback()

		Convey("Then it covers every category in order", func() {
			So(tx.Categories(), ShouldResemble, model.Categories)
			for _, c := range model.Categories {
				So(tx.Flatten()[c], ShouldNotBeEmpty)
			}
		})
	})
}
