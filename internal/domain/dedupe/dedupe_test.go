package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/casetag/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExclusionSet(t *testing.T) {
	Convey("Given a new ExclusionSet", t, func() {
		ctx := context.Background()

		Convey("When created with seed ids", func() {
			s := dedupe.NewExclusionSet(dedupe.WithIDs("C2", " C1 ", ""))

			Convey("Then the trimmed non-blank ids are present", func() {
				So(s.Size(), ShouldEqual, 2)
				So(s.IDs(), ShouldResemble, []string{"C1", "C2"})
				So(s.Contains("C1"), ShouldBeTrue)
			})
		})

		Convey("When recording ids", func() {
			s := dedupe.NewExclusionSet()

			Convey("Then a new id is not seen and a repeat is", func() {
				So(s.SeenAndRecord(ctx, "C1"), ShouldBeFalse)
				So(s.SeenAndRecord(ctx, "C1"), ShouldBeTrue)
				So(s.Size(), ShouldEqual, 1)
			})
		})

		Convey("When taking a union", func() {
			a := dedupe.NewExclusionSet(dedupe.WithIDs("C1", "C2"))
			b := dedupe.NewExclusionSet(dedupe.WithIDs("C2", "C3"))
			u := a.Union(b)

			Convey("Then the result holds both without touching the inputs", func() {
				So(u.IDs(), ShouldResemble, []string{"C1", "C2", "C3"})
				So(a.Size(), ShouldEqual, 2)
				So(a.Union(nil).Size(), ShouldEqual, 2)
			})

			Convey("Then any Exclusions implementation can be merged in", func() {
				var prior dedupe.Exclusions = dedupe.NewExclusionSet(dedupe.WithIDs("C9"))
				So(a.Union(prior).IDs(), ShouldResemble, []string{"C1", "C2", "C9"})
			})
		})

		Convey("When many goroutines record the same ids", func() {
			s := dedupe.NewExclusionSet()
			var wg sync.WaitGroup
			var mu sync.Mutex
			fresh := 0
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 100; i++ {
						if !s.SeenAndRecord(ctx, fmt.Sprintf("C%d", i)) {
							mu.Lock()
							fresh++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each id is recorded exactly once", func() {
				So(fresh, ShouldEqual, 100)
				So(s.Size(), ShouldEqual, 100)
			})
		})
	})
}
