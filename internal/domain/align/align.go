// Package align pivots raw named-signal samples into an aligned
// multi-channel frame for one track.
package align

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/okian/pitwall/internal/domain/telemetry"
	"github.com/okian/pitwall/pkg/logger"
	"github.com/okian/pitwall/pkg/metrics"
)

// DefaultMaxRows caps raw samples loaded for one track.
const DefaultMaxRows = 100_000

// Source yields raw samples for one track. Implementations match signal
// names case-insensitively and return at most limit samples.
type Source interface {
	Samples(ctx context.Context, track string, signals []telemetry.Signal, limit int) ([]telemetry.Sample, error)
}

// Aligner loads and pivots telemetry.
type Aligner struct {
	source  Source
	maxRows int
	log     logger.Logger
}

// Option configures an Aligner.
type Option func(*Aligner)

// WithMaxRows overrides the row cap.
func WithMaxRows(n int) Option {
	return func(a *Aligner) {
		if n > 0 {
			a.maxRows = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aligner) {
		if l != nil {
			a.log = l
		}
	}
}

// New creates an Aligner over src.
func New(src Source, opts ...Option) *Aligner {
	a := &Aligner{source: src, maxRows: DefaultMaxRows}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Frame returns the aligned frame for track restricted to signals. An empty
// frame means no data for the track; only source failures are errors. One
// sample past the cap is requested so a load of exactly maxRows is not
// reported as truncated.
func (a *Aligner) Frame(ctx context.Context, track string, signals []telemetry.Signal) (telemetry.Frame, error) {
	samples, err := a.source.Samples(ctx, track, signals, a.maxRows+1)
	if err != nil {
		return telemetry.Frame{Track: track}, fmt.Errorf("load telemetry for %s: %w", track, err)
	}
	truncated := len(samples) > a.maxRows
	if truncated {
		samples = samples[:a.maxRows]
		metrics.RecordRowsCapped(track)
		if a.log != nil {
			a.log.Debug(ctx, "row cap reached", logger.Track(track), logger.Int("max_rows", a.maxRows))
		}
	}
	metrics.RecordSamplesLoaded(track, len(samples))

	frame := Pivot(track, samples, signals)
	frame.Truncated = truncated
	metrics.UpdateFrameRows(track, len(frame.Rows))
	if frame.Empty() && a.log != nil {
		a.log.Warn(ctx, "no telemetry for track", logger.Track(track))
	}
	return frame, nil
}

type rowKey struct {
	timestamp float64
	lap       int
	vehicle   string
	track     string
}

type cell struct {
	sum   float64
	count int
}

// Pivot groups samples by (timestamp, lap, vehicle, track) and averages
// duplicate readings of one signal. Samples whose name is not in signals, or
// whose value is absent, are ignored. A signal becomes a column when at least
// one reading of it survives.
func Pivot(track string, samples []telemetry.Sample, signals []telemetry.Signal) telemetry.Frame {
	wanted := lo.SliceToMap(signals, func(s telemetry.Signal) (telemetry.Signal, struct{}) {
		return s, struct{}{}
	})

	var order []rowKey
	cells := make(map[rowKey]map[telemetry.Signal]*cell)
	seen := make(map[telemetry.Signal]struct{})

	for _, s := range samples {
		sig, ok := telemetry.ParseSignal(s.Signal)
		if !ok || s.Value == nil {
			continue
		}
		if _, ok := wanted[sig]; !ok {
			continue
		}
		k := rowKey{timestamp: s.Timestamp, lap: s.Lap, vehicle: s.VehicleID, track: s.Track}
		row, ok := cells[k]
		if !ok {
			row = make(map[telemetry.Signal]*cell)
			cells[k] = row
			order = append(order, k)
		}
		c, ok := row[sig]
		if !ok {
			c = &cell{}
			row[sig] = c
		}
		c.sum += *s.Value
		c.count++
		seen[sig] = struct{}{}
	}

	frame := telemetry.Frame{
		Track: track,
		Columns: lo.Filter(signals, func(s telemetry.Signal, _ int) bool {
			_, ok := seen[s]
			return ok
		}),
	}
	frame.Columns = lo.Uniq(frame.Columns)
	if len(order) == 0 {
		return frame
	}

	frame.Rows = make([]telemetry.Row, 0, len(order))
	for _, k := range order {
		r := telemetry.Row{Timestamp: k.timestamp, Lap: k.lap, VehicleID: k.vehicle, Track: k.track}
		for sig, c := range cells[k] {
			r.Set(sig, c.sum/float64(c.count))
		}
		frame.Rows = append(frame.Rows, r)
	}
	telemetry.SortRows(frame.Rows)
	return frame
}
