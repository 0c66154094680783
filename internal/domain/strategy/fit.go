package strategy

import (
	"math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// Model is the linear degradation lap_time = Intercept + Slope*lap_age.
type Model struct {
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
	// Fitted is false when too few clean laps forced a flat pace.
	Fitted bool `json:"fitted"`
}

// Predict returns the lap time at the given lap age.
func (m Model) Predict(age int) float64 {
	return m.Intercept + m.Slope*float64(age)
}

// Fit regresses lap time on lap age over non-pit laps. With fewer than
// MinFitLaps such laps the model is the median pace. The slope never drops
// below MinSlope.
func (s *Simulator) Fit(laps []Lap) Model {
	clean := lo.Filter(laps, func(l Lap, _ int) bool { return !l.Pit })
	flat := func() Model {
		pace := median(lapTimes(clean))
		if len(clean) == 0 {
			pace = median(lapTimes(laps))
		}
		return Model{Intercept: pace, Slope: s.cfg.MinSlope}
	}
	if len(clean) < s.cfg.MinFitLaps {
		return flat()
	}

	x := lo.Map(clean, func(l Lap, _ int) float64 { return float64(l.Age) })
	y := lapTimes(clean)
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		// Every clean lap shares one age.
		return flat()
	}
	if beta < s.cfg.MinSlope {
		beta = s.cfg.MinSlope
	}
	return Model{Intercept: alpha, Slope: beta, Fitted: true}
}

// PitLoss estimates time lost to one stop. A measured pit signal wins when
// it has positive values; otherwise the gap between slow laps and the median
// lap stands in; otherwise DefaultPitLoss.
func (s *Simulator) PitLoss(laps []Lap, measured bool) (float64, string) {
	logged := lo.Filter(laps, func(l Lap, _ int) bool { return !l.Filler })

	if measured {
		positive := lo.FilterMap(logged, func(l Lap, _ int) (float64, bool) {
			if l.PitTime != nil && *l.PitTime > 0 {
				return *l.PitTime, true
			}
			return 0, false
		})
		if len(positive) > 0 {
			return median(positive), PitLossMeasured
		}
	}

	if len(logged) > 0 {
		med := median(lapTimes(logged))
		slow := lo.Filter(lapTimes(logged), func(t float64, _ int) bool { return t >= s.cfg.SlowLapFactor*med })
		if len(slow) > 0 {
			if loss := median(slow) - med; loss > 0 {
				return loss, PitLossSlowLaps
			}
		}
	}
	return s.cfg.DefaultPitLoss, PitLossDefault
}
