// Package braking flags braking points sample by sample.
package braking

import (
	"github.com/okian/pitwall/internal/domain/telemetry"
)

// Config holds detector thresholds.
type Config struct {
	// SpeedDrop fires when speed[i]-speed[i-1] falls below it.
	SpeedDrop float64
	// Accel fires when longitudinal acceleration falls below it.
	Accel float64
	// Pressure fires when either brake pressure exceeds it.
	Pressure float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{SpeedDrop: -4.0, Accel: -0.2, Pressure: 5.0}
}

// Event is a single braking sample point.
type Event struct {
	Timestamp   float64  `json:"timestamp"`
	Lap         int      `json:"lap"`
	VehicleID   string   `json:"vehicle_id"`
	SpeedBefore *float64 `json:"speed_before"`
	SpeedAfter  *float64 `json:"speed_after"`
}

// Detector is a stateless point detector.
type Detector struct {
	cfg Config
}

// New creates a Detector.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Config returns the thresholds in use.
func (d *Detector) Config() Config { return d.cfg }

// Detect tests every row after the first. Any single clause is enough:
// speed drop, longitudinal deceleration, front or rear brake pressure. An
// absent channel never satisfies its clause. Adjacent firings are not merged.
func (d *Detector) Detect(frame telemetry.Frame) ([]Event, error) {
	if frame.Empty() {
		return nil, nil
	}
	if err := frame.Require(telemetry.Speed); err != nil {
		return nil, err
	}

	var events []Event
	for i := 1; i < len(frame.Rows); i++ {
		prev, row := frame.Rows[i-1], frame.Rows[i]
		if !d.fires(prev, row) {
			continue
		}
		events = append(events, Event{
			Timestamp:   row.Timestamp,
			Lap:         row.Lap,
			VehicleID:   row.VehicleID,
			SpeedBefore: clone(prev.Speed),
			SpeedAfter:  clone(row.Speed),
		})
	}
	return events, nil
}

func (d *Detector) fires(prev, row telemetry.Row) bool {
	before, okB := prev.Get(telemetry.Speed)
	after, okA := row.Get(telemetry.Speed)
	if okB && okA && after-before < d.cfg.SpeedDrop {
		return true
	}
	if v, ok := row.Get(telemetry.LongitudinalAccel); ok && v < d.cfg.Accel {
		return true
	}
	if v, ok := row.Get(telemetry.BrakeFront); ok && v > d.cfg.Pressure {
		return true
	}
	if v, ok := row.Get(telemetry.BrakeRear); ok && v > d.cfg.Pressure {
		return true
	}
	return false
}

func clone(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return telemetry.Float(*v)
}
