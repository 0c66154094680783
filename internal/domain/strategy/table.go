package strategy

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/okian/pitwall/internal/domain/sector"
	"github.com/okian/pitwall/internal/domain/telemetry"
)

// Accepted column names, most specific first.
//
//nolint:gochecknoglobals // alias tables
var (
	LapColumns  = []string{"lap_number", "lap", "lap_num"}
	TimeColumns = []string{"lap_time", "laptime", "lap time", "lap_time_s"}
	CarColumns  = []string{"number", "car_number", "vehicle_number", "driver_number"}
)

// Table is a per-lap table for one track, keyed by column name.
type Table map[string][]any

// ParseLapTime reads SS.sss, MM:SS.sss or HH:MM:SS.sss as seconds.
func ParseLapTime(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, false
	}
	secs, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil || math.IsNaN(secs) {
		return 0, false
	}
	total := secs
	scale := 60.0
	for i := len(parts) - 2; i >= 0; i-- {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return 0, false
		}
		total += float64(n) * scale
		scale *= 60
	}
	return total, true
}

// lapSeconds converts a lap time cell. Values of 1000 or more, numeric or
// text, are taken as milliseconds.
func lapSeconds(v any) float64 {
	t := math.NaN()
	if str, ok := v.(string); ok {
		if parsed, ok := ParseLapTime(str); ok {
			t = parsed
		}
	} else if f := telemetry.Coerce(v); f != nil {
		t = *f
	}
	if t >= 1000 {
		return t / 1000
	}
	return t
}

// sectorSum adds the sector cells of row i, counting absent cells as zero.
func sectorSum(sectors [][]any, i int) float64 {
	var sum float64
	for _, col := range sectors {
		if v := number(cell(col, i)); !math.IsNaN(v) {
			sum += v
		}
	}
	return sum
}

func number(v any) float64 {
	if f := telemetry.Coerce(v); f != nil {
		return *f
	}
	return math.NaN()
}

// CarKey renders a car identifier cell so 7, 7.0 and "7" compare equal.
func CarKey(v any) string {
	if f := telemetry.Coerce(v); f != nil && *f == math.Trunc(*f) {
		return strconv.FormatInt(int64(*f), 10)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func (t Table) lower() map[string][]any {
	return lo.MapKeys(t, func(_ []any, k string) string { return strings.ToLower(strings.TrimSpace(k)) })
}

func resolve(cols map[string][]any, aliases []string) ([]any, bool) {
	for _, a := range aliases {
		if c, ok := cols[a]; ok {
			return c, true
		}
	}
	return nil, false
}

// pitColumn is the first column, in name order, whose name mentions "pit".
func pitColumn(cols map[string][]any) ([]any, bool) {
	names := lo.Filter(lo.Keys(cols), func(n string, _ int) bool { return strings.Contains(n, "pit") })
	if len(names) == 0 {
		return nil, false
	}
	sort.Strings(names)
	return cols[names[0]], true
}

// Cars lists the distinct car identifiers in the table.
func (t Table) Cars() []string {
	col, ok := resolve(t.lower(), CarColumns)
	if !ok {
		return nil
	}
	cars := lo.Uniq(lo.Map(col, func(v any, _ int) string { return CarKey(v) }))
	sort.Strings(cars)
	return cars
}

// History extracts one car's laps. A lap time that is missing, malformed or
// zero falls back to the sum of the sector columns; whatever is still missing
// takes the median of the car's other laps. A table with neither lap times nor
// sectors, or without a car column, yields telemetry.ErrMissingSignal; a car
// with no rows yields ErrUnknownCar.
func (t Table) History(car string) (History, error) {
	cols := t.lower()
	times, hasTime := resolve(cols, TimeColumns)
	sectors := lo.FilterMap(sector.Names, func(name string, _ int) ([]any, bool) {
		return resolve(cols, sector.Aliases[name])
	})
	if !hasTime && len(sectors) == 0 {
		return History{}, fmt.Errorf("%w: lap time column", telemetry.ErrMissingSignal)
	}
	cars, ok := resolve(cols, CarColumns)
	if !ok {
		return History{}, fmt.Errorf("%w: car number column", telemetry.ErrMissingSignal)
	}
	laps, hasLap := resolve(cols, LapColumns)
	pits, hasPit := pitColumn(cols)

	var h History
	if hasLap {
		h.LapNumbers = []float64{}
	}
	if hasPit {
		h.PitTimes = []float64{}
	}
	want := CarKey(car)
	for i := range cars {
		if CarKey(cars[i]) != want {
			continue
		}
		lt := math.NaN()
		if hasTime {
			lt = lapSeconds(cell(times, i))
		}
		if math.IsNaN(lt) {
			lt = sectorSum(sectors, i)
		}
		if lt == 0 {
			lt = math.NaN()
		}
		h.LapTimes = append(h.LapTimes, lt)
		if hasLap {
			h.LapNumbers = append(h.LapNumbers, number(cell(laps, i)))
		}
		if hasPit {
			h.PitTimes = append(h.PitTimes, number(cell(pits, i)))
		}
	}
	if len(h.LapTimes) == 0 {
		return History{}, fmt.Errorf("%w: %s", ErrUnknownCar, car)
	}
	fillMissing(h.LapTimes)
	return h, nil
}

// fillMissing replaces NaN entries with the median of the finite ones. With
// no finite entry the slice is left as is.
func fillMissing(values []float64) {
	known := lo.Filter(values, func(v float64, _ int) bool { return !math.IsNaN(v) })
	if len(known) == 0 || len(known) == len(values) {
		return
	}
	m := median(known)
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = m
		}
	}
}

func cell(col []any, i int) any {
	if i < len(col) {
		return col[i]
	}
	return nil
}
