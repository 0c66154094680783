package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/pitwall/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		Convey("Then it should start empty", func() {
			So(d.Size(), ShouldEqual, 0)
			So(d.InFlight(), ShouldBeEmpty)
		})

		Convey("When a track is claimed", func() {
			seen := d.SeenAndRecord(ctx, "sonoma")

			Convey("Then the first claim should succeed", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And a second claim for the same track should be reported as in flight", func() {
				So(d.SeenAndRecord(ctx, "sonoma"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And after release it should be claimable again", func() {
				d.Unrecord(ctx, "sonoma")
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "sonoma"), ShouldBeFalse)
			})
		})

		Convey("When releasing an unknown key", func() {
			d.Unrecord(ctx, "nowhere")

			Convey("Then nothing should change", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestDeduperOrderingAndBound(t *testing.T) {
	Convey("Given a deduper bounded to two claims", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))

		d.SeenAndRecord(ctx, "indy")
		d.SeenAndRecord(ctx, "cota")

		Convey("Then keys should be listed in claim order", func() {
			So(d.InFlight(), ShouldResemble, []string{"indy", "cota"})
		})

		Convey("When a third key arrives", func() {
			d.SeenAndRecord(ctx, "barber")

			Convey("Then the oldest claim should be dropped", func() {
				So(d.Size(), ShouldEqual, 2)
				So(d.InFlight(), ShouldResemble, []string{"cota", "barber"})
				So(d.SeenAndRecord(ctx, "indy"), ShouldBeFalse)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := 0; i < 100; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("track-%d", i))
		}

		Convey("Then nothing should be evicted", func() {
			So(d.Size(), ShouldEqual, 100)
		})
	})
}

func TestDeduperConcurrency(t *testing.T) {
	Convey("Given many goroutines claiming the same track", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(ctx, "sebring") {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one claim should win", func() {
			So(wins, ShouldEqual, 1)
			So(d.Size(), ShouldEqual, 1)
		})
	})
}
