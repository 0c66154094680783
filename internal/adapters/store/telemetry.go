// Package store reads the columnar telemetry, sector and lap tables from
// parquet files and keeps built track metadata in memory.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/okian/pitwall/internal/domain/strategy"
	"github.com/okian/pitwall/internal/domain/telemetry"
	"github.com/okian/pitwall/pkg/metrics"
)

// Long-format telemetry column names, most specific first.
//
//nolint:gochecknoglobals // alias tables
var (
	timestampColumns = []string{"timestamp", "meta_time"}
	nameColumns      = []string{"telemetry_name", "signal", "name"}
	valueColumns     = []string{"telemetry_value", "value"}
	lapColumns       = []string{"lap", "lap_number"}
	vehicleColumns   = []string{"vehicle_number", "vehicle_id", "car_number", "number"}
	trackColumns     = []string{"track"}
)

// Telemetry serves long-format samples from telemetry_{track}_*.parquet files.
// Files of one track are unioned by column name: a column absent from one
// file reads as null there.
type Telemetry struct {
	dir     string
	pattern string
}

// NewTelemetry returns a source over dir. pattern holds one %s for the track.
func NewTelemetry(dir, pattern string) *Telemetry {
	return &Telemetry{dir: dir, pattern: pattern}
}

// Files lists the telemetry files for track in name order.
func (t *Telemetry) Files(track string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(t.dir, fmt.Sprintf(t.pattern, track)))
	if err != nil {
		return nil, fmt.Errorf("%w: glob telemetry for %s: %v", ErrQuery, track, err)
	}
	sort.Strings(files)
	return files, nil
}

// Samples returns at most limit samples of the requested signals for track.
// Signal names match case-insensitively. Rows without a timestamp, lap or
// vehicle cannot be aligned and are skipped. No files means no samples.
func (t *Telemetry) Samples(ctx context.Context, track string, signals []telemetry.Signal, limit int) ([]telemetry.Sample, error) {
	files, err := t.Files(track)
	if err != nil {
		metrics.RecordQueryFailure("telemetry")
		return nil, err
	}

	want := lo.SliceToMap(signals, func(s telemetry.Signal) (telemetry.Signal, struct{}) { return s, struct{}{} })
	keep := columnFilter(timestampColumns, nameColumns, valueColumns, lapColumns, vehicleColumns, trackColumns)

	var out []telemetry.Sample
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cols, err := readColumns(path, keep)
		if err != nil {
			metrics.RecordQueryFailure("telemetry")
			return nil, fmt.Errorf("%w: %v", ErrQuery, err)
		}
		out = appendSamples(out, cols, track, want, limit)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func appendSamples(out []telemetry.Sample, cols columns, track string, want map[telemetry.Signal]struct{}, limit int) []telemetry.Sample {
	ts, okTS := cols.get(timestampColumns...)
	names, okName := cols.get(nameColumns...)
	if !okTS || !okName {
		return out
	}
	values, _ := cols.get(valueColumns...)
	laps, _ := cols.get(lapColumns...)
	vehicles, _ := cols.get(vehicleColumns...)
	tracks, _ := cols.get(trackColumns...)

	for i := 0; i < cols.rows; i++ {
		if limit > 0 && len(out) >= limit {
			break
		}
		name, ok := cell(names, i).(string)
		if !ok {
			continue
		}
		sig, ok := telemetry.ParseSignal(name)
		if !ok {
			continue
		}
		if _, ok := want[sig]; !ok {
			continue
		}
		if tr, ok := cell(tracks, i).(string); ok && !strings.EqualFold(tr, track) {
			continue
		}
		stamp, ok := telemetry.Timestamp(cell(ts, i))
		if !ok {
			continue
		}
		lap := telemetry.Coerce(cell(laps, i))
		vehicle := vehicleKey(cell(vehicles, i))
		if lap == nil || vehicle == "" {
			continue
		}
		out = append(out, telemetry.Sample{
			Timestamp: stamp,
			Signal:    string(sig),
			Value:     telemetry.Coerce(cell(values, i)),
			Lap:       int(*lap),
			VehicleID: vehicle,
			Track:     track,
		})
	}
	return out
}

// columnFilter accepts any name listed in one of the alias groups.
func columnFilter(groups ...[]string) func(string) bool {
	names := lo.SliceToMap(lo.Flatten(groups), func(n string) (string, struct{}) { return n, struct{}{} })
	return func(name string) bool {
		_, ok := names[name]
		return ok
	}
}

func cell(col []any, i int) any {
	if i < len(col) {
		return col[i]
	}
	return nil
}

// vehicleKey renders a vehicle cell the way lap tables key cars. Null
// cells yield "".
func vehicleKey(v any) string {
	if v == nil {
		return ""
	}
	return strategy.CarKey(v)
}
