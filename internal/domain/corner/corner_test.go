package corner_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/pitwall/internal/domain/corner"
	"github.com/okian/pitwall/internal/domain/telemetry"
	"github.com/smartystreets/goconvey/convey"
)

var allColumns = []telemetry.Signal{telemetry.Speed, telemetry.LateralG, telemetry.SteeringAngle}

// buildFrame makes one row per steering value at 10 Hz on lap 2.
func buildFrame(angles, lateral, speeds []float64) telemetry.Frame {
	f := telemetry.Frame{Track: "barber", Columns: allColumns}
	for i := range angles {
		r := telemetry.Row{Timestamp: 100 + float64(i)*0.1, Lap: 2, VehicleID: "13", Track: "barber"}
		r.Set(telemetry.SteeringAngle, angles[i])
		r.Set(telemetry.LateralG, lateral[i])
		if speeds != nil {
			r.Set(telemetry.Speed, speeds[i])
		}
		f.Rows = append(f.Rows, r)
	}
	return f
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func concat(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestDefaultConfig(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		cfg := corner.DefaultConfig()

		convey.Convey("Then exit thresholds should sit below entry thresholds", func() {
			convey.So(cfg.ExitSteering, convey.ShouldBeLessThan, cfg.EntrySteering)
			convey.So(cfg.ExitG, convey.ShouldBeLessThan, cfg.EntryG)
			convey.So(cfg.MinSegment, convey.ShouldEqual, 8)
			convey.So(corner.New(cfg).Config(), convey.ShouldResemble, cfg)
		})
	})
}

func TestMinimumSegmentBoundary(t *testing.T) {
	convey.Convey("Given steering [0, 8, 8, 2, 2] with zero lateral g and min segment 2", t, func() {
		cfg := corner.DefaultConfig()
		cfg.MinSegment = 2
		frame := buildFrame([]float64{0, 8, 8, 2, 2}, repeat(0, 5), repeat(80, 5))

		corners, err := corner.New(cfg).Detect(frame)

		convey.Convey("Then a segment of exactly the minimum length should not be emitted", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(corners, convey.ShouldBeEmpty)
		})

		convey.Convey("When the minimum is lowered to 1", func() {
			cfg.MinSegment = 1
			corners, err := corner.New(cfg).Detect(frame)

			convey.Convey("Then the same segment should be emitted over rows 1 and 2", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(corners), convey.ShouldEqual, 1)
				convey.So(corners[0].StartTime, convey.ShouldAlmostEqual, 100.1, 1e-9)
				convey.So(corners[0].EndTime, convey.ShouldAlmostEqual, 100.2, 1e-9)
			})
		})
	})
}

func TestDetect(t *testing.T) {
	convey.Convey("Given a frame with one long corner", t, func() {
		angles := concat(repeat(0, 3), repeat(12, 12), repeat(1, 3))
		lateral := concat(repeat(0.02, 3), []float64{0.3, 0.6, -0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2, 0.2, 0.2}, repeat(0.01, 3))
		speeds := concat(repeat(150, 3), []float64{140, 130, 120, 110, 100, 95, 90, 95, 100, 110, 120, 130}, repeat(140, 3))
		frame := buildFrame(angles, lateral, speeds)

		corners, err := corner.New(corner.DefaultConfig()).Detect(frame)

		convey.Convey("Then one corner should be emitted with raw-series statistics", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(corners), convey.ShouldEqual, 1)
			c := corners[0]
			convey.So(c.EndTime, convey.ShouldBeGreaterThan, c.StartTime)
			convey.So(c.StartTime, convey.ShouldAlmostEqual, 100.3, 1e-9)
			convey.So(c.EndTime, convey.ShouldAlmostEqual, 101.4, 1e-9)
			convey.So(*c.MinSpeed, convey.ShouldEqual, 90)
			convey.So(*c.EntrySpeed, convey.ShouldEqual, 140)
			convey.So(*c.ExitSpeed, convey.ShouldEqual, 130)
			convey.So(c.MaxLateralG, convey.ShouldEqual, 0.9)
			convey.So(c.Lap, convey.ShouldEqual, 2)
		})

		convey.Convey("Then every record should exceed the minimum segment length", func() {
			for _, c := range corners {
				samples := int((c.EndTime-c.StartTime)/0.1+0.5) + 1
				convey.So(samples, convey.ShouldBeGreaterThan, corner.DefaultConfig().MinSegment)
			}
		})

		convey.Convey("When run twice on the same frame", func() {
			again, err := corner.New(corner.DefaultConfig()).Detect(frame)

			convey.Convey("Then the records should be identical", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cmp.Diff(corners, again), convey.ShouldBeEmpty)
			})
		})
	})

	convey.Convey("Given a corner whose rows lack lateral g in the middle", t, func() {
		angles := concat(repeat(10, 12), repeat(0, 2))
		lateral := concat(repeat(0.5, 12), repeat(0, 2))
		frame := buildFrame(angles, lateral, repeat(100, 14))
		// Rows 4..6 look like an exit on steering but carry no lateral g.
		for i := 4; i <= 6; i++ {
			frame.Rows[i].SteeringAngle = telemetry.Float(0)
			frame.Rows[i].LateralG = nil
		}

		corners, err := corner.New(corner.DefaultConfig()).Detect(frame)

		convey.Convey("Then the skipped rows should not close the segment", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(corners), convey.ShouldEqual, 1)
			convey.So(corners[0].StartTime, convey.ShouldAlmostEqual, 100.0, 1e-9)
		})
	})

	convey.Convey("Given a corner still open at the end of the frame", t, func() {
		frame := buildFrame(repeat(20, 30), repeat(1, 30), repeat(90, 30))

		corners, err := corner.New(corner.DefaultConfig()).Detect(frame)

		convey.Convey("Then nothing should be emitted", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(corners, convey.ShouldBeEmpty)
		})
	})

	convey.Convey("Given a segment without speed readings", t, func() {
		angles := concat(repeat(10, 12), repeat(0, 2))
		frame := buildFrame(angles, repeat(0, 14), repeat(100, 14))
		for i := range frame.Rows {
			frame.Rows[i].Speed = nil
		}
		frame.Rows[13].Speed = telemetry.Float(100)

		corners, err := corner.New(corner.DefaultConfig()).Detect(frame)

		convey.Convey("Then speed fields should be absent rather than zero", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(corners), convey.ShouldEqual, 1)
			convey.So(corners[0].MinSpeed, convey.ShouldBeNil)
			convey.So(corners[0].EntrySpeed, convey.ShouldBeNil)
			convey.So(corners[0].ExitSpeed, convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a frame missing the steering column", t, func() {
		frame := buildFrame(repeat(10, 12), repeat(0.5, 12), repeat(100, 12))
		frame.Columns = []telemetry.Signal{telemetry.Speed, telemetry.LateralG}

		corners, err := corner.New(corner.DefaultConfig()).Detect(frame)

		convey.Convey("Then a soft missing-signal error and no corners should be returned", func() {
			convey.So(errors.Is(err, telemetry.ErrMissingSignal), convey.ShouldBeTrue)
			convey.So(corners, convey.ShouldBeEmpty)
		})
	})

	convey.Convey("Given an empty frame", t, func() {
		corners, err := corner.New(corner.DefaultConfig()).Detect(telemetry.Frame{Track: "barber"})

		convey.Convey("Then no corners and no error should be returned", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(corners, convey.ShouldBeEmpty)
		})
	})

	convey.Convey("Given a segment whose rows share one timestamp", t, func() {
		frame := buildFrame(concat(repeat(10, 12), repeat(0, 2)), repeat(0, 14), repeat(100, 14))
		for i := range frame.Rows {
			frame.Rows[i].Timestamp = 50
		}

		corners, _ := corner.New(corner.DefaultConfig()).Detect(frame)

		convey.Convey("Then it should not be emitted", func() {
			convey.So(corners, convey.ShouldBeEmpty)
		})
	})
}

func TestStateString(t *testing.T) {
	convey.Convey("Given the segmenter states", t, func() {
		convey.So(corner.Outside.String(), convey.ShouldEqual, "outside")
		convey.So(corner.InCorner.String(), convey.ShouldEqual, "in_corner")
	})
}
