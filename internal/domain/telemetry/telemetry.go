// Package telemetry contains the sample and aligned-frame models shared by
// the detectors.
package telemetry

import (
	"sort"
	"strings"
)

// Signal is a raw telemetry channel name as logged by the car.
type Signal string

// Channels the detectors consume.
const (
	Speed             Signal = "speed"
	LateralG          Signal = "accy_can"
	SteeringAngle     Signal = "steering_angle"
	LongitudinalAccel Signal = "accx_can"
	BrakeFront        Signal = "pbrake_f"
	BrakeRear         Signal = "pbrake_r"
)

// Signals lists every known channel in column order.
var Signals = []Signal{Speed, LateralG, SteeringAngle, LongitudinalAccel, BrakeFront, BrakeRear} //nolint:gochecknoglobals // channel table

var aliases = map[string]Signal{ //nolint:gochecknoglobals // lookup table
	"speed":                Speed,
	"accy_can":             LateralG,
	"lateral_g":            LateralG,
	"steering_angle":       SteeringAngle,
	"accx_can":             LongitudinalAccel,
	"longitudinal_accel":   LongitudinalAccel,
	"pbrake_f":             BrakeFront,
	"brake_pressure_front": BrakeFront,
	"pbrake_r":             BrakeRear,
	"brake_pressure_rear":  BrakeRear,
}

// ParseSignal resolves a raw name case-insensitively.
func ParseSignal(name string) (Signal, bool) {
	s, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Sample is one raw (timestamp, signal, value) reading. A nil Value means the
// cell could not be coerced to a number.
type Sample struct {
	Timestamp float64
	Signal    string
	Value     *float64
	Lap       int
	VehicleID string
	Track     string
}

// Row is one aligned multi-channel vector. Every channel is optional.
type Row struct {
	Timestamp float64
	Lap       int
	VehicleID string
	Track     string

	Speed             *float64
	LateralG          *float64
	SteeringAngle     *float64
	LongitudinalAccel *float64
	BrakeFront        *float64
	BrakeRear         *float64
}

func (r *Row) slot(s Signal) **float64 {
	switch s {
	case Speed:
		return &r.Speed
	case LateralG:
		return &r.LateralG
	case SteeringAngle:
		return &r.SteeringAngle
	case LongitudinalAccel:
		return &r.LongitudinalAccel
	case BrakeFront:
		return &r.BrakeFront
	case BrakeRear:
		return &r.BrakeRear
	}
	return nil
}

// Get returns the channel value and whether it is present.
func (r Row) Get(s Signal) (float64, bool) {
	p := r.slot(s)
	if p == nil || *p == nil {
		return 0, false
	}
	return **p, true
}

// Set stores a value for the channel. Unknown channels are ignored.
func (r *Row) Set(s Signal, v float64) {
	if p := r.slot(s); p != nil {
		*p = Float(v)
	}
}

// Frame is the aligned table for one track.
type Frame struct {
	Track   string
	Rows    []Row
	Columns []Signal
	// Truncated reports that the row cap dropped samples.
	Truncated bool
}

// Empty reports whether the frame has no rows.
func (f Frame) Empty() bool { return len(f.Rows) == 0 }

// Has reports whether the channel is a column of the frame.
func (f Frame) Has(s Signal) bool {
	for _, c := range f.Columns {
		if c == s {
			return true
		}
	}
	return false
}

// Require returns ErrMissingSignal naming the first absent channel.
func (f Frame) Require(signals ...Signal) error {
	for _, s := range signals {
		if !f.Has(s) {
			return MissingSignal(f.Track, s)
		}
	}
	return nil
}

// Sorted reports whether timestamps are non-decreasing within every
// (lap, vehicle) group.
func (f Frame) Sorted() bool {
	type group struct {
		lap     int
		vehicle string
	}
	last := make(map[group]float64)
	for _, r := range f.Rows {
		g := group{lap: r.Lap, vehicle: r.VehicleID}
		if prev, ok := last[g]; ok && r.Timestamp < prev {
			return false
		}
		last[g] = r.Timestamp
	}
	return true
}

// SortRows orders rows by timestamp, then lap, then vehicle.
func SortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		if a.Lap != b.Lap {
			return a.Lap < b.Lap
		}
		return a.VehicleID < b.VehicleID
	})
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
