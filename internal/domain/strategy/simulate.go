package strategy

import (
	"fmt"
	"math"
	"strconv"

	"github.com/samber/lo"
)

// MaxStops is the largest stop count in the comparison table.
const MaxStops = 2

// Scenario is one candidate race plan. LapTimes carries the pit loss on each
// stop lap, so its sum equals Total.
type Scenario struct {
	Label    string    `json:"label"`
	Stops    []int     `json:"stop_laps"`
	LapTimes []float64 `json:"lap_times_s"`
	Total    float64   `json:"total_time_s"`
}

// Row is one line of the stop-count comparison.
type Row struct {
	Strategy     string  `json:"strategy"`
	StopCount    int     `json:"stops"`
	StopLaps     []int   `json:"stop_laps"`
	TotalSeconds float64 `json:"total_time_s"`
	TotalMinutes float64 `json:"total_time_min"`
}

// Simulate predicts every lap of a race with stops at the given laps. Lap age
// restarts at 1 on the lap after each stop. A non-positive raceLaps yields an
// empty plan.
func Simulate(m Model, pitLoss float64, raceLaps int, stops []int) Scenario {
	raceLaps = max(raceLaps, 0)
	sc := Scenario{
		Label:    label(stops),
		Stops:    append([]int{}, stops...),
		LapTimes: make([]float64, 0, raceLaps),
	}
	stopAt := lo.SliceToMap(stops, func(l int) (int, struct{}) { return l, struct{}{} })

	last := 0
	for lap := 1; lap <= raceLaps; lap++ {
		t := m.Predict(lap - last)
		if _, ok := stopAt[lap]; ok {
			t += pitLoss
			last = lap
		}
		sc.LapTimes = append(sc.LapTimes, t)
	}
	sc.Total = lo.Sum(sc.LapTimes)
	return sc
}

// Scenarios returns the no-stop baseline followed by one single-stop plan
// per feasible stop lap.
func Scenarios(m Model, pitLoss float64, raceLaps int) []Scenario {
	if raceLaps < 1 {
		return nil
	}
	out := []Scenario{Simulate(m, pitLoss, raceLaps, nil)}
	for _, lap := range stopWindow(raceLaps) {
		out = append(out, Simulate(m, pitLoss, raceLaps, []int{lap}))
	}
	return out
}

// Compare returns one row per feasible stop count in 0..MaxStops, each with
// the best stop timing found by exhaustive search. A non-positive raceLaps
// yields no rows.
func Compare(m Model, pitLoss float64, raceLaps int) []Row {
	if raceLaps < 1 {
		return nil
	}
	window := stopWindow(raceLaps)
	rows := make([]Row, 0, MaxStops+1)
	for stops := 0; stops <= MaxStops; stops++ {
		if stops > len(window) {
			break
		}
		var bestPlan []int
		bestTotal := math.Inf(1)
		combinations(window, stops, func(plan []int) {
			if t := planTotal(m, pitLoss, raceLaps, plan); t < bestTotal {
				bestTotal = t
				bestPlan = append(bestPlan[:0], plan...)
			}
		})
		rows = append(rows, Row{
			Strategy:     fmt.Sprintf("%d Stop(s)", stops),
			StopCount:    stops,
			StopLaps:     append([]int{}, bestPlan...),
			TotalSeconds: bestTotal,
			TotalMinutes: bestTotal / 60,
		})
	}
	return rows
}

// planTotal is the race time of Simulate without building the lap series.
// Stops must be increasing laps within the race.
func planTotal(m Model, pitLoss float64, raceLaps int, stops []int) float64 {
	total := float64(len(stops)) * pitLoss
	last := 0
	for _, lap := range stops {
		total += stintTime(m, lap-last)
		last = lap
	}
	return total + stintTime(m, raceLaps-last)
}

// stintTime sums Predict over lap ages 1..n.
func stintTime(m Model, n int) float64 {
	f := float64(n)
	return f*m.Intercept + m.Slope*f*(f+1)/2
}

// Best returns the fastest row; ties go to fewer stops.
func Best(rows []Row) Row {
	return lo.MinBy(rows, func(a, b Row) bool {
		if a.TotalSeconds != b.TotalSeconds {
			return a.TotalSeconds < b.TotalSeconds
		}
		return a.StopCount < b.StopCount
	})
}

// stopWindow lists the laps a stop may be taken on: the second lap through
// two laps before the flag.
func stopWindow(raceLaps int) []int {
	if raceLaps < 4 {
		return nil
	}
	return lo.RangeFrom(2, raceLaps-3)
}

// combinations calls fn with every increasing k-subset of laps. The slice
// passed to fn is reused.
func combinations(laps []int, k int, fn func([]int)) {
	plan := make([]int, k)
	var rec func(start, depth int)
	rec = func(start, depth int) {
		if depth == k {
			fn(plan)
			return
		}
		for i := start; i <= len(laps)-(k-depth); i++ {
			plan[depth] = laps[i]
			rec(i+1, depth+1)
		}
	}
	rec(0, 0)
}

func label(stops []int) string {
	if len(stops) == 0 {
		return "baseline"
	}
	s := "pit"
	for i, l := range stops {
		if i == 0 {
			s += "@" + strconv.Itoa(l)
			continue
		}
		s += "+" + strconv.Itoa(l)
	}
	return s
}
