package synth_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pitwall/internal/domain/strategy"
	"github.com/okian/pitwall/internal/synth"
)

func TestGenerate(t *testing.T) {
	Convey("Given an empty directory", t, func() {
		dir := t.TempDir()

		Convey("When a two-track dataset is generated", func() {
			sum, err := synth.Generate(dir, synth.WithTracks("sonoma", "indy"), synth.WithCars(7), synth.WithLaps(2))
			So(err, ShouldBeNil)

			Convey("Then one telemetry file per track plus both tables exist", func() {
				So(sum.Files, ShouldHaveLength, 4)
				for _, name := range []string{
					"telemetry_sonoma_R1.parquet",
					"telemetry_indy_R1.parquet",
					"sectors.parquet",
					"laps.parquet",
				} {
					info, err := os.Stat(filepath.Join(dir, name))
					So(err, ShouldBeNil)
					So(info.Size(), ShouldBeGreaterThan, 0)
				}
			})

			Convey("Then every instant logs seven channels", func() {
				So(sum.Samples, ShouldEqual, 2*2*synth.StepsPerLap*7)
				So(sum.Sectors, ShouldEqual, 2*2)
				So(sum.Laps, ShouldEqual, 2*20)
			})
		})
	})
}

func TestTelemetry(t *testing.T) {
	Convey("Given generated rows for two cars", t, func() {
		rows := synth.Telemetry("cota", []int{7, 13}, 1)

		Convey("Then timestamps never go backwards", func() {
			for i := 1; i < len(rows); i++ {
				So(rows[i].Timestamp, ShouldBeGreaterThanOrEqualTo, rows[i-1].Timestamp)
			}
		})

		Convey("Then the second car starts after the first finishes", func() {
			var lastSeven, firstThirteen int64
			for _, r := range rows {
				if r.VehicleNumber == 7 {
					lastSeven = r.Timestamp
				}
				if r.VehicleNumber == 13 && firstThirteen == 0 {
					firstThirteen = r.Timestamp
				}
			}
			So(firstThirteen, ShouldBeGreaterThan, lastSeven)
		})
	})
}

func TestLaps(t *testing.T) {
	Convey("Given a ten-lap history with a stop on lap 5", t, func() {
		rows := synth.Laps("barber", []int{7}, 10, 5)

		Convey("Then only the stop lap carries a pit time", func() {
			for _, r := range rows {
				if r.LapNumber == 5 {
					So(r.PitTime, ShouldNotBeNil)
					So(*r.PitTime, ShouldEqual, 24.5)
				} else {
					So(r.PitTime, ShouldBeNil)
				}
			}
		})

		Convey("Then lap times parse back and tyre age resets after the stop", func() {
			first, ok := strategy.ParseLapTime(rows[0].LapTime)
			So(ok, ShouldBeTrue)
			So(first, ShouldAlmostEqual, 90.12, 1e-9)

			afterStop, ok := strategy.ParseLapTime(rows[5].LapTime)
			So(ok, ShouldBeTrue)
			So(afterStop, ShouldAlmostEqual, 90.12, 1e-9)
		})
	})
}

func TestFormatLapTime(t *testing.T) {
	Convey("FormatLapTime pads seconds", t, func() {
		So(synth.FormatLapTime(91.5), ShouldEqual, "1:31.500")
		So(synth.FormatLapTime(65.25), ShouldEqual, "1:05.250")
		So(synth.FormatLapTime(59.0), ShouldEqual, "0:59.000")
	})
}
