package artifacts_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/okian/casetag/internal/adapters/artifacts"
	"github.com/okian/casetag/internal/domain/merge"
	"github.com/okian/casetag/internal/domain/taxonomy"
	"github.com/okian/casetag/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

const schemaDoc = `{
  "crime_type": {
    "financial_fraud": ["job_fraud"]
  }
}
`

func TestWriteFileAtomic(t *testing.T) {
	Convey("Given an existing file", t, func() {
		fs := memfs.New()
		So(util.WriteFile(fs, "out/data.txt", []byte("old"), 0o644), ShouldBeNil)

		Convey("When it is atomically replaced", func() {
			err := artifacts.WriteFileAtomic(fs, "out/data.txt", []byte("new"))

			Convey("Then the new content is visible and no temp file is left", func() {
				So(err, ShouldBeNil)
				data, err := util.ReadFile(fs, "out/data.txt")
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "new")
				entries, err := fs.ReadDir("out")
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
			})
		})
	})
}

func TestStore(t *testing.T) {
	Convey("Given a store in a work directory", t, func() {
		fs := memfs.New()
		s := artifacts.NewStore(fs, artifacts.WithDir("work"))
		table := merge.Table{
			Header: []string{"Case", "Gist", "notes"},
			Rows:   [][]string{{"1", "text, with comma", "line\nbreak"}, {"2", "plain", ""}},
		}

		Convey("Then artifact paths follow the naming convention", func() {
			So(s.Path(artifacts.KindProgress, "it1"), ShouldEqual, "work/progress_it1.csv")
			So(s.Path(artifacts.KindCheckpoint, "it1"), ShouldEqual, "work/checkpoint_it1.json")
			So(s.Path(artifacts.KindOutput, "it1"), ShouldEqual, "work/classified_it1.csv")
			So(s.Path(artifacts.KindSchema, "it1"), ShouldEqual, "work/schema_it1.json")
		})

		Convey("When progress is written", func() {
			So(s.WriteProgress("it1", table), ShouldBeNil)

			Convey("Then it reads back cell for cell", func() {
				got, ok, err := s.ReadProgress("it1")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(got.Header, ShouldResemble, table.Header)
				So(got.Rows, ShouldResemble, table.Rows)
			})

			Convey("Then removing progress deletes it along with the checkpoint", func() {
				So(s.WriteCheckpoint("it1", types.Checkpoint{Iteration: "it1", Target: 2}), ShouldBeNil)
				So(s.RemoveProgress("it1"), ShouldBeNil)
				So(s.Exists(artifacts.KindProgress, "it1"), ShouldBeFalse)
				So(s.Exists(artifacts.KindCheckpoint, "it1"), ShouldBeFalse)
				So(s.RemoveProgress("it1"), ShouldBeNil)
			})
		})

		Convey("When no progress exists", func() {
			_, ok, err := s.ReadProgress("fresh")

			Convey("Then it is reported as absent, not as an error", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a checkpoint is written", func() {
			cp := types.Checkpoint{RunID: "r", Iteration: "it1", Target: 5, Remaining: 3, Timestamp: 1.5}
			So(s.WriteCheckpoint("it1", cp), ShouldBeNil)

			Convey("Then it reads back", func() {
				got, err := s.ReadCheckpoint("it1")
				So(err, ShouldBeNil)
				So(got, ShouldResemble, cp)
			})
		})

		Convey("When a checkpoint is missing", func() {
			_, err := s.ReadCheckpoint("none")
			So(errors.Is(err, artifacts.ErrNotFound), ShouldBeTrue)
		})

		Convey("When a schema is written", func() {
			tx, err := taxonomy.Parse([]byte(schemaDoc))
			So(err, ShouldBeNil)
			So(s.WriteSchema("it1", tx), ShouldBeNil)

			Convey("Then it reads back", func() {
				got, ok, err := s.ReadSchema("it1")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(got.Contains("crime_type", "job_fraud"), ShouldBeTrue)
			})
		})

		Convey("When no schema exists", func() {
			got, ok, err := s.ReadSchema("fresh")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
			So(got, ShouldBeNil)
		})

		Convey("When the schema is malformed", func() {
			So(util.WriteFile(fs, s.Path(artifacts.KindSchema, "bad"), []byte("{"), 0o644), ShouldBeNil)
			_, ok, err := s.ReadSchema("bad")
			So(ok, ShouldBeFalse)
			So(errors.Is(err, taxonomy.ErrSchemaMalformed), ShouldBeTrue)
		})

		Convey("When the iteration name escapes the directory", func() {
			err := s.WriteProgress("../x", table)
			So(errors.Is(err, artifacts.ErrInvalidName), ShouldBeTrue)
		})
	})
}

func TestDecodeTable(t *testing.T) {
	Convey("Given CSV input", t, func() {
		Convey("Then a BOM is stripped and short rows are padded", func() {
			got, err := artifacts.DecodeTable(strings.NewReader("\ufeffCase,Gist,X\n1,a\n"))
			So(err, ShouldBeNil)
			So(got.Header[0], ShouldEqual, "Case")
			So(got.Rows[0], ShouldResemble, []string{"1", "a", ""})
		})

		Convey("Then an empty input is malformed", func() {
			_, err := artifacts.DecodeTable(strings.NewReader(""))
			So(errors.Is(err, artifacts.ErrMalformed), ShouldBeTrue)
		})
	})
}

func TestSchemaStore(t *testing.T) {
	Convey("Given a stored taxonomy", t, func() {
		fs := memfs.New()
		So(util.WriteFile(fs, "schema/taxonomy.json", []byte(schemaDoc), 0o644), ShouldBeNil)
		s := artifacts.NewSchemaStore(fs, "schema/taxonomy.json")

		Convey("Then the backup sits beside it", func() {
			So(s.BackupPath(), ShouldEqual, "schema/taxonomy_backup.json")
		})

		Convey("When every observed tag is already known", func() {
			changes, err := s.Merge(map[string][]string{"crime_type": {"job_fraud"}})

			Convey("Then nothing is written", func() {
				So(err, ShouldBeNil)
				So(changes.Empty(), ShouldBeTrue)
				data, _ := util.ReadFile(fs, s.Path())
				So(string(data), ShouldEqual, schemaDoc)
				_, statErr := fs.Stat(s.BackupPath())
				So(statErr, ShouldNotBeNil)
			})
		})

		Convey("When new tags are observed", func() {
			changes, err := s.Merge(map[string][]string{"crime_type": {"upi_fraud", "job_fraud"}})

			Convey("Then the previous bytes are backed up and the schema gains the tag", func() {
				So(err, ShouldBeNil)
				So(changes.Total(), ShouldEqual, 1)
				backup, err := util.ReadFile(fs, s.BackupPath())
				So(err, ShouldBeNil)
				So(string(backup), ShouldEqual, schemaDoc)
				tx, err := s.Load()
				So(err, ShouldBeNil)
				So(tx.Contains("crime_type", "upi_fraud"), ShouldBeTrue)
			})

			Convey("Then merging the same tags again changes nothing", func() {
				again, err := s.Merge(map[string][]string{"crime_type": {"upi_fraud"}})
				So(err, ShouldBeNil)
				So(again.Empty(), ShouldBeTrue)
			})
		})

		Convey("When the schema file is missing", func() {
			_, err := artifacts.NewSchemaStore(fs, "nope.json").Load()
			So(errors.Is(err, taxonomy.ErrSchemaNotFound), ShouldBeTrue)
		})

		Convey("When the schema file is not JSON", func() {
			So(util.WriteFile(fs, "bad.json", []byte("{"), 0o644), ShouldBeNil)
			_, err := artifacts.NewSchemaStore(fs, "bad.json").Merge(nil)
			So(errors.Is(err, taxonomy.ErrSchemaMalformed), ShouldBeTrue)
		})
	})
}
