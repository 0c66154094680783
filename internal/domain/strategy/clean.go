package strategy

import (
	"math"
	"sort"

	"github.com/samber/lo"
)

// History is one car's raw lap table. NaN marks a cell that failed numeric
// coercion.
type History struct {
	// LapNumbers is nil when the table has no lap column.
	LapNumbers []float64
	LapTimes   []float64
	// PitTimes is nil when the table has no pit column.
	PitTimes []float64
}

type rawLap struct {
	number float64
	time   float64
	pit    *float64
}

// Clean derives lap numbers, drops duplicates and implausible laps, flags pit
// laps, pads sparse histories with filler laps slightly slower than the base
// pace and assigns lap age. It
// returns the laps sorted by number and the filler count.
func (s *Simulator) Clean(h History) ([]Lap, int) {
	raw := make([]rawLap, 0, len(h.LapTimes))
	for i, t := range h.LapTimes {
		r := rawLap{number: float64(i + 1), time: t}
		if h.LapNumbers != nil {
			r.number = at(h.LapNumbers, i)
		}
		if h.PitTimes != nil {
			if p := at(h.PitTimes, i); !math.IsNaN(p) {
				r.pit = &p
			}
		}
		raw = append(raw, r)
	}

	raw = lo.Filter(raw, func(r rawLap, _ int) bool {
		return !math.IsNaN(r.number) && r.number >= 1
	})
	raw = lo.UniqBy(raw, func(r rawLap) int { return int(r.number) })
	raw = lo.Filter(raw, func(r rawLap, _ int) bool {
		return !math.IsNaN(r.time) && r.time > s.cfg.MinLapTime && r.time < s.cfg.MaxLapTime
	})

	laps := lo.Map(raw, func(r rawLap, _ int) Lap {
		return Lap{Number: int(r.number), Time: r.time, PitTime: r.pit}
	})
	sort.SliceStable(laps, func(i, j int) bool { return laps[i].Number < laps[j].Number })

	s.flagPits(laps, h.PitTimes != nil)

	fillers := 0
	if missing := s.cfg.MinLaps - len(laps); missing > 0 {
		pace := s.cfg.BaselinePace
		last := 0
		if len(laps) > 0 {
			pace = median(lapTimes(laps))
			last = laps[len(laps)-1].Number
		}
		pace *= s.cfg.FillerFactor
		for i := 1; i <= missing; i++ {
			laps = append(laps, Lap{Number: last + i, Time: pace, Filler: true})
		}
		fillers = missing
	}

	age := 1
	for i := range laps {
		laps[i].Age = age
		age++
		if laps[i].Pit {
			age = 1
		}
	}
	return laps, fillers
}

// flagPits uses the measured pit signal when the table has one, otherwise
// laps at or above SlowLapFactor x median.
func (s *Simulator) flagPits(laps []Lap, measured bool) {
	if measured {
		for i := range laps {
			laps[i].Pit = laps[i].PitTime != nil && *laps[i].PitTime != 0
		}
		return
	}
	if len(laps) == 0 {
		return
	}
	threshold := s.cfg.SlowLapFactor * median(lapTimes(laps))
	for i := range laps {
		laps[i].Pit = laps[i].Time >= threshold
	}
}

func at(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return math.NaN()
}

func lapTimes(laps []Lap) []float64 {
	return lo.Map(laps, func(l Lap, _ int) float64 { return l.Time })
}

// median averages the two middle values of an even-length slice.
func median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
