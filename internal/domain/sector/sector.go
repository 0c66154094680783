// Package sector summarizes per-lap sector times for a track.
package sector

import (
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Sector names in lap order.
const (
	S1 = "S1"
	S2 = "S2"
	S3 = "S3"
)

// Names lists the sectors in lap order.
var Names = []string{S1, S2, S3} //nolint:gochecknoglobals // sector order

// Aliases lists accepted column names per sector, most specific first.
var Aliases = map[string][]string{ //nolint:gochecknoglobals // lookup table
	S1: {"s1_seconds", "s1"},
	S2: {"s2_seconds", "s2"},
	S3: {"s3_seconds", "s3"},
}

// Table maps column names to per-lap values. NaN marks an absent cell.
type Table map[string][]float64

// Resolve returns the first alias column present for sector name.
func (t Table) Resolve(name string) ([]float64, bool) {
	lower := lo.MapKeys(t, func(_ []float64, k string) string { return strings.ToLower(k) })
	for _, alias := range Aliases[name] {
		if col, ok := lower[alias]; ok {
			return col, true
		}
	}
	return nil, false
}

// Statistic summarizes one sector. StdTime is nil with fewer than two laps.
// DistanceRatio is nil when the sum of sector means is not positive.
type Statistic struct {
	AvgTime       float64  `json:"avg_time"`
	StdTime       *float64 `json:"std_time"`
	Min           float64  `json:"min"`
	Max           float64  `json:"max"`
	DistanceRatio *float64 `json:"distance_ratio"`
}

// Summary maps S1/S2/S3 to their statistics.
type Summary map[string]Statistic

// Aggregate computes mean, sample standard deviation, min and max per sector
// and each sector's share of the summed means. A sector column that cannot
// be resolved, or holds no numeric value, makes the whole track unavailable.
func Aggregate(t Table) (Summary, error) {
	out := make(Summary, len(Names))
	total := 0.0
	for _, name := range Names {
		col, ok := t.Resolve(name)
		if !ok {
			return nil, fmt.Errorf("%w: no column for %s", ErrUnavailable, name)
		}
		values := lo.Filter(col, func(v float64, _ int) bool { return !math.IsNaN(v) })
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: %s has no numeric values", ErrUnavailable, name)
		}

		s := Statistic{
			AvgTime: stat.Mean(values, nil),
			Min:     floats.Min(values),
			Max:     floats.Max(values),
		}
		if len(values) > 1 {
			std := stat.StdDev(values, nil)
			s.StdTime = &std
		}
		out[name] = s
		total += s.AvgTime
	}

	if total > 0 {
		for _, name := range Names {
			s := out[name]
			ratio := s.AvgTime / total
			s.DistanceRatio = &ratio
			out[name] = s
		}
	}
	return out, nil
}
