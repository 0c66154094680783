package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"

	"github.com/samber/lo"

	"github.com/okian/pitwall/internal/domain/sector"
	"github.com/okian/pitwall/internal/domain/strategy"
	"github.com/okian/pitwall/internal/domain/telemetry"
	"github.com/okian/pitwall/pkg/metrics"
)

// Sectors reads the per-lap sector table.
type Sectors struct {
	path string
}

// NewSectors returns a reader over the sectors parquet file.
func NewSectors(path string) *Sectors { return &Sectors{path: path} }

// Table returns the sector columns of track. A missing file yields an empty
// table, which the aggregator reports as unavailable.
func (s *Sectors) Table(ctx context.Context, track string) (sector.Table, error) {
	rows, err := trackRows(ctx, s.path, track)
	if err != nil {
		metrics.RecordQueryFailure("sectors")
		return nil, err
	}
	return lo.MapValues(rows, func(col []any, _ string) []float64 {
		return lo.Map(col, func(v any, _ int) float64 {
			if f := telemetry.Coerce(v); f != nil {
				return *f
			}
			return math.NaN()
		})
	}), nil
}

// Laps reads the per-lap timing table used for strategy.
type Laps struct {
	path string
}

// NewLaps returns a reader over the laps parquet file.
func NewLaps(path string) *Laps { return &Laps{path: path} }

// Table returns the lap rows of track. A missing file yields an empty table.
func (l *Laps) Table(ctx context.Context, track string) (strategy.Table, error) {
	rows, err := trackRows(ctx, l.path, track)
	if err != nil {
		metrics.RecordQueryFailure("laps")
		return nil, err
	}
	return strategy.Table(rows), nil
}

// trackRows reads every column of path and keeps the rows whose track cell
// matches track case-insensitively. A file without a track column is taken
// to hold a single track.
func trackRows(ctx context.Context, path, track string) (map[string][]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return map[string][]any{}, nil
	}

	cols, err := readColumns(path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	tracks, ok := cols.get(trackColumns...)
	if !ok {
		return cols.data, nil
	}

	keep := lo.Filter(lo.RangeFrom(0, cols.rows), func(i, _ int) bool {
		tr, ok := cell(tracks, i).(string)
		return ok && strings.EqualFold(strings.TrimSpace(tr), track)
	})
	return lo.MapValues(cols.data, func(col []any, _ string) []any {
		return lo.Map(keep, func(i, _ int) any { return cell(col, i) })
	}), nil
}
