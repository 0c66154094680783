package telemetry

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Coerce converts a raw cell to a number. Malformed, missing or non-finite
// values come back as nil.
func Coerce(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		f = parsed
	case *float64:
		if x == nil {
			return nil
		}
		f = *x
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Elapsed converts a wall-clock instant to epoch seconds.
func Elapsed(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// Timestamp normalizes a raw timestamp cell to epoch seconds.
func Timestamp(v any) (float64, bool) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return 0, false
		}
		return Elapsed(x), true
	case string:
		if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(x)); err == nil {
			return Elapsed(t), true
		}
	}
	if f := Coerce(v); f != nil {
		return *f, true
	}
	return 0, false
}
