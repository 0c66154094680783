package braking_test

import (
	"errors"
	"testing"

	"github.com/okian/pitwall/internal/domain/braking"
	"github.com/okian/pitwall/internal/domain/telemetry"
	"github.com/smartystreets/goconvey/convey"
)

func speedFrame(speeds ...float64) telemetry.Frame {
	f := telemetry.Frame{Track: "cota", Columns: []telemetry.Signal{telemetry.Speed}}
	for i, v := range speeds {
		r := telemetry.Row{Timestamp: float64(i), Lap: 4, VehicleID: "55", Track: "cota"}
		r.Set(telemetry.Speed, v)
		f.Rows = append(f.Rows, r)
	}
	return f
}

func TestDetect(t *testing.T) {
	convey.Convey("Given a speed-only series with a single -10 drop", t, func() {
		frame := speedFrame(200, 201, 202, 192, 193, 194)

		events, err := braking.New(braking.DefaultConfig()).Detect(frame)

		convey.Convey("Then exactly one event should fire at that sample", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(events), convey.ShouldEqual, 1)
			convey.So(events[0].Timestamp, convey.ShouldEqual, 3)
			convey.So(*events[0].SpeedBefore, convey.ShouldEqual, 202)
			convey.So(*events[0].SpeedAfter, convey.ShouldEqual, 192)
			convey.So(events[0].Lap, convey.ShouldEqual, 4)
			convey.So(events[0].VehicleID, convey.ShouldEqual, "55")
		})
	})

	convey.Convey("Given a drop of exactly the threshold", t, func() {
		events, err := braking.New(braking.DefaultConfig()).Detect(speedFrame(100, 96))

		convey.Convey("Then the strict comparison should not fire", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(events, convey.ShouldBeEmpty)
		})
	})

	convey.Convey("Given optional channels that each fire alone", t, func() {
		frame := speedFrame(100, 100, 100, 100, 100)
		frame.Columns = append(frame.Columns, telemetry.LongitudinalAccel, telemetry.BrakeFront, telemetry.BrakeRear)
		frame.Rows[1].Set(telemetry.LongitudinalAccel, -0.5)
		frame.Rows[2].Set(telemetry.BrakeFront, 12)
		frame.Rows[3].Set(telemetry.BrakeRear, 6)
		frame.Rows[4].Set(telemetry.BrakeFront, 5)
		frame.Rows[4].Set(telemetry.LongitudinalAccel, -0.1)

		events, err := braking.New(braking.DefaultConfig()).Detect(frame)

		convey.Convey("Then every qualifying sample should fire independently", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(events), convey.ShouldEqual, 3)
			convey.So(events[0].Timestamp, convey.ShouldEqual, 1)
			convey.So(events[1].Timestamp, convey.ShouldEqual, 2)
			convey.So(events[2].Timestamp, convey.ShouldEqual, 3)
		})
	})

	convey.Convey("Given a row with no speed next to a braking sample", t, func() {
		frame := speedFrame(100, 100, 80)
		frame.Rows[1].Speed = nil

		events, err := braking.New(braking.DefaultConfig()).Detect(frame)

		convey.Convey("Then the drop clause should not fire across the gap", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(events, convey.ShouldBeEmpty)
		})
	})

	convey.Convey("Given the first sample exceeds every threshold", t, func() {
		frame := speedFrame(100, 101)
		frame.Columns = append(frame.Columns, telemetry.BrakeFront)
		frame.Rows[0].Set(telemetry.BrakeFront, 50)

		events, _ := braking.New(braking.DefaultConfig()).Detect(frame)

		convey.Convey("Then sample 0 should never fire", func() {
			convey.So(events, convey.ShouldBeEmpty)
		})
	})

	convey.Convey("Given a frame without a speed column", t, func() {
		frame := telemetry.Frame{
			Track:   "cota",
			Columns: []telemetry.Signal{telemetry.BrakeFront},
			Rows:    []telemetry.Row{{Timestamp: 1}, {Timestamp: 2, BrakeFront: telemetry.Float(40)}},
		}

		events, err := braking.New(braking.DefaultConfig()).Detect(frame)

		convey.Convey("Then a soft missing-signal error should be returned", func() {
			convey.So(errors.Is(err, telemetry.ErrMissingSignal), convey.ShouldBeTrue)
			convey.So(events, convey.ShouldBeEmpty)
		})
	})

	convey.Convey("Given an event built from a frame row", t, func() {
		frame := speedFrame(100, 80)
		events, _ := braking.New(braking.DefaultConfig()).Detect(frame)
		*frame.Rows[1].Speed = 0

		convey.Convey("Then the event should not alias the frame", func() {
			convey.So(*events[0].SpeedAfter, convey.ShouldEqual, 80)
		})
	})
}

func TestZones(t *testing.T) {
	convey.Convey("Given consecutive firings", t, func() {
		events := []braking.Event{
			{Timestamp: 1.0, Lap: 1, VehicleID: "7", SpeedBefore: telemetry.Float(200), SpeedAfter: telemetry.Float(190)},
			{Timestamp: 1.1, Lap: 1, VehicleID: "7", SpeedBefore: telemetry.Float(190), SpeedAfter: telemetry.Float(170)},
			{Timestamp: 1.2, Lap: 1, VehicleID: "7", SpeedBefore: telemetry.Float(170), SpeedAfter: telemetry.Float(150)},
			{Timestamp: 5.0, Lap: 1, VehicleID: "7", SpeedBefore: telemetry.Float(160), SpeedAfter: telemetry.Float(140)},
			{Timestamp: 5.1, Lap: 2, VehicleID: "7"},
		}

		zones := braking.Zones(events, 0.25)

		convey.Convey("Then close firings should merge and gaps should split", func() {
			convey.So(len(zones), convey.ShouldEqual, 3)
			convey.So(zones[0].Start, convey.ShouldEqual, 1.0)
			convey.So(zones[0].End, convey.ShouldEqual, 1.2)
			convey.So(zones[0].Points, convey.ShouldEqual, 3)
			convey.So(zones[0].SpeedLoss, convey.ShouldEqual, 50)
			convey.So(zones[1].Points, convey.ShouldEqual, 1)
			convey.So(zones[1].SpeedLoss, convey.ShouldEqual, 20)
			convey.So(zones[2].Lap, convey.ShouldEqual, 2)
			convey.So(zones[2].SpeedLoss, convey.ShouldEqual, 0)
		})
	})

	convey.Convey("Given two cars braking at the same instants", t, func() {
		events := []braking.Event{
			{Timestamp: 1.0, Lap: 1, VehicleID: "7"},
			{Timestamp: 1.0, Lap: 1, VehicleID: "13"},
			{Timestamp: 1.1, Lap: 1, VehicleID: "7"},
			{Timestamp: 1.1, Lap: 1, VehicleID: "13"},
		}

		zones := braking.Zones(events, 0.25)

		convey.Convey("Then each car should get one zone", func() {
			convey.So(len(zones), convey.ShouldEqual, 2)
			convey.So(zones[0].VehicleID, convey.ShouldEqual, "13")
			convey.So(zones[0].Points, convey.ShouldEqual, 2)
			convey.So(zones[1].VehicleID, convey.ShouldEqual, "7")
			convey.So(zones[1].Points, convey.ShouldEqual, 2)
			convey.So(events[0].VehicleID, convey.ShouldEqual, "7")
		})
	})

	convey.Convey("Given no events", t, func() {
		convey.So(braking.Zones(nil, 1), convey.ShouldBeEmpty)
	})
}
