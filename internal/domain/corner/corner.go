// Package corner detects corner intervals from steering angle and lateral g
// with a two-state hysteresis machine.
package corner

import (
	"math"

	"github.com/okian/pitwall/internal/domain/telemetry"
)

// State of the segmenter.
type State int

// Segmenter states. Outside is initial and terminal.
const (
	Outside State = iota
	InCorner
)

func (s State) String() string {
	if s == InCorner {
		return "in_corner"
	}
	return "outside"
}

// Config holds entry/exit thresholds. Exit thresholds are lower than entry
// thresholds.
type Config struct {
	EntrySteering float64
	EntryG        float64
	ExitSteering  float64
	ExitG         float64
	// MinSegment is the sample count a segment must exceed to be emitted.
	MinSegment int
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		EntrySteering: 5,
		EntryG:        0.15,
		ExitSteering:  3,
		ExitG:         0.10,
		MinSegment:    8,
	}
}

// Corner is one detected corner interval. Speed fields are nil when the
// segment carries no speed reading.
type Corner struct {
	StartTime   float64  `json:"start_time"`
	EndTime     float64  `json:"end_time"`
	MinSpeed    *float64 `json:"min_speed"`
	MaxLateralG float64  `json:"max_lateral_g"`
	EntrySpeed  *float64 `json:"entry_speed"`
	ExitSpeed   *float64 `json:"exit_speed"`
	Lap         int      `json:"lap"`
}

// Segmenter runs the state machine over aligned frames.
type Segmenter struct {
	cfg Config
}

// New creates a Segmenter.
func New(cfg Config) *Segmenter {
	return &Segmenter{cfg: cfg}
}

// Config returns the thresholds in use.
func (s *Segmenter) Config() Config { return s.cfg }

func (s *Segmenter) enters(angle, g float64) bool {
	return math.Abs(angle) > s.cfg.EntrySteering || math.Abs(g) > s.cfg.EntryG
}

func (s *Segmenter) exits(angle, g float64) bool {
	return math.Abs(angle) < s.cfg.ExitSteering && math.Abs(g) < s.cfg.ExitG
}

// Detect makes one left-to-right pass over the frame. Rows lacking steering
// angle or lateral g are skipped and never close an open segment. A segment
// open at the end of the frame is dropped. A frame without the speed, lateral
// g and steering columns yields telemetry.ErrMissingSignal.
func (s *Segmenter) Detect(frame telemetry.Frame) ([]Corner, error) {
	if frame.Empty() {
		return nil, nil
	}
	if err := frame.Require(telemetry.Speed, telemetry.LateralG, telemetry.SteeringAngle); err != nil {
		return nil, err
	}

	var (
		corners []Corner
		state   = Outside
		start   int
	)
	for i, row := range frame.Rows {
		angle, okA := row.Get(telemetry.SteeringAngle)
		g, okG := row.Get(telemetry.LateralG)
		if !okA || !okG {
			continue
		}

		if state == Outside && s.enters(angle, g) {
			state = InCorner
			start = i
		}

		if state == InCorner && s.exits(angle, g) {
			if i-start > s.cfg.MinSegment {
				if c, ok := summarize(frame.Rows[start:i]); ok {
					corners = append(corners, c)
				}
			}
			state = Outside
		}
	}
	return corners, nil
}

// summarize builds the record for rows [start, end).
func summarize(seg []telemetry.Row) (Corner, bool) {
	c := Corner{
		StartTime: math.Inf(1),
		EndTime:   math.Inf(-1),
		Lap:       seg[0].Lap,
	}
	for _, r := range seg {
		c.StartTime = math.Min(c.StartTime, r.Timestamp)
		c.EndTime = math.Max(c.EndTime, r.Timestamp)

		if g, ok := r.Get(telemetry.LateralG); ok {
			c.MaxLateralG = math.Max(c.MaxLateralG, math.Abs(g))
		}
		if v, ok := r.Get(telemetry.Speed); ok {
			if c.EntrySpeed == nil {
				c.EntrySpeed = telemetry.Float(v)
			}
			c.ExitSpeed = telemetry.Float(v)
			if c.MinSpeed == nil || v < *c.MinSpeed {
				c.MinSpeed = telemetry.Float(v)
			}
		}
	}
	// A segment spanning a single instant is not an interval.
	return c, c.EndTime > c.StartTime
}
