package sampler

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// edgeRand always returns the largest value IntN allows, or zero when low is set.
type edgeRand struct{ low bool }

func (e edgeRand) IntN(n int) int {
	if e.low {
		return 0
	}
	return n - 1
}

func (edgeRand) Shuffle(int, func(i, j int)) {}

func TestPickEra(t *testing.T) {
	now := time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC)

	Convey("Given a fixed clock", t, func() {
		Convey("Bounds run from 1980 to ten years ago", func() {
			start, end := EraBounds(now, 0)
			So(start, ShouldEqual, 1980)
			So(end, ShouldEqual, 2016)
		})

		Convey("The bound never inverts for early clocks", func() {
			start, end := EraBounds(time.Date(1985, 1, 1, 0, 0, 0, 0, time.UTC), MinYear)
			So(start, ShouldEqual, 1980)
			So(end, ShouldEqual, 1980)
		})

		Convey("The extremes are reachable", func() {
			lo := PickEra(now, edgeRand{low: true})
			So(lo.Year, ShouldEqual, 1980)
			So(lo.Offset, ShouldEqual, 0)

			hi := PickEra(now, edgeRand{})
			So(hi.Year, ShouldEqual, 2016)
			So(hi.Offset, ShouldEqual, MaxOffset)
		})

		Convey("Random draws stay in range", func() {
			rng := seeded(3)
			for range 5000 {
				era := PickEra(now, rng)
				So(era.Year, ShouldBeBetweenOrEqual, 1980, 2016)
				So(era.Offset, ShouldBeBetweenOrEqual, 0, 1000)
			}
		})

		Convey("A nil source falls back to the global one", func() {
			era := PickEra(now, nil)
			So(era.Year, ShouldBeBetweenOrEqual, 1980, 2016)
		})

		Convey("A configured first year is honoured", func() {
			era := PickEraFrom(now, 2000, edgeRand{low: true})
			So(era.Year, ShouldEqual, 2000)
		})
	})
}

func TestEraQuery(t *testing.T) {
	era := Era{Year: 1994}

	if got := era.Query(nil); got != "year:1994 genre:pop genre:rock genre:hip-hop genre:r-b genre:dance" {
		t.Errorf("unexpected default query: %s", got)
	}
	if got := era.Query([]string{"jazz", " ", "soul"}); got != "year:1994 genre:jazz genre:soul" {
		t.Errorf("unexpected custom query: %s", got)
	}
}
