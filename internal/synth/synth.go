// Package synth writes a small deterministic parquet dataset shaped like the
// race telemetry exports: long-format telemetry per track plus sector and lap
// timing tables.
package synth

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

const (
	writeParallelism = 4
	// StepsPerLap is the number of telemetry instants written per lap.
	StepsPerLap = 60
	// Step is the spacing between telemetry instants.
	Step = 100 * time.Millisecond
	// CornersPerLap, BrakingPerLap and ZonesPerLap describe the generated lap shape.
	CornersPerLap = 2
	BrakingPerLap = 8
	ZonesPerLap   = 2
)

// Epoch is the instant of the first generated sample.
var Epoch = time.Date(2025, time.April, 5, 14, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // fixed dataset origin

// TelemetryRow is one long-format telemetry sample.
type TelemetryRow struct {
	Timestamp      int64    `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	TelemetryName  string   `parquet:"name=telemetry_name, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	TelemetryValue *float64 `parquet:"name=telemetry_value, type=DOUBLE, repetitiontype=OPTIONAL"`
	Lap            int64    `parquet:"name=lap, type=INT64"`
	VehicleNumber  int64    `parquet:"name=vehicle_number, type=INT64"`
	Track          string   `parquet:"name=track, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
}

// SectorRow is one lap of sector times.
type SectorRow struct {
	Track     string  `parquet:"name=track, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Number    int64   `parquet:"name=number, type=INT64"`
	Lap       int64   `parquet:"name=lap, type=INT64"`
	S1Seconds float64 `parquet:"name=s1_seconds, type=DOUBLE"`
	S2Seconds float64 `parquet:"name=s2_seconds, type=DOUBLE"`
	S3Seconds float64 `parquet:"name=s3_seconds, type=DOUBLE"`
}

// LapRow is one timed lap. LapTime is written as M:SS.sss.
type LapRow struct {
	Track     string   `parquet:"name=track, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Number    int64    `parquet:"name=number, type=INT64"`
	LapNumber int64    `parquet:"name=lap_number, type=INT64"`
	LapTime   string   `parquet:"name=lap_time, type=BYTE_ARRAY, convertedtype=UTF8"`
	PitTime   *float64 `parquet:"name=pit_time, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// Summary reports what Generate wrote.
type Summary struct {
	Files   []string
	Samples int
	Sectors int
	Laps    int
}

// Generate writes telemetry_{track}_R1.parquet per track, sectors.parquet and
// laps.parquet into dir.
func Generate(dir string, opts ...Option) (Summary, error) {
	o := newOptions(opts...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create %s: %w", dir, err)
	}

	var sum Summary
	var sectors []SectorRow
	var laps []LapRow
	for i, track := range o.tracks {
		rows := Telemetry(track, o.cars, o.laps)
		path := filepath.Join(dir, fmt.Sprintf("telemetry_%s_R1.parquet", track))
		if err := WriteTelemetry(path, rows); err != nil {
			return sum, err
		}
		sum.Files = append(sum.Files, path)
		sum.Samples += len(rows)

		sectors = append(sectors, Sectors(track, i, o.cars, o.laps)...)
		laps = append(laps, Laps(track, o.cars, o.raceLaps, o.pitLap)...)
	}

	sectorPath := filepath.Join(dir, "sectors.parquet")
	if err := WriteSectors(sectorPath, sectors); err != nil {
		return sum, err
	}
	lapPath := filepath.Join(dir, "laps.parquet")
	if err := WriteLaps(lapPath, laps); err != nil {
		return sum, err
	}
	sum.Files = append(sum.Files, sectorPath, lapPath)
	sum.Sectors = len(sectors)
	sum.Laps = len(laps)
	return sum, nil
}

// profile is one telemetry instant of the generated lap shape.
type profile struct {
	speed, steering, lateralG, accel, brakeF, brakeR float64
}

// lapProfile returns the channel values at step k of a lap: a straight, a
// four-step braking zone, a twelve-step right-hander, a second straight and
// braking zone, a twelve-step left-hander and a short coast to the line.
func lapProfile(k int) profile {
	straight := profile{steering: 1, lateralG: 0.03, accel: 0.3}
	braking := profile{steering: 2, lateralG: 0.05, accel: -1.5, brakeF: 45, brakeR: 30}
	switch {
	case k < 10:
		straight.speed = 150 + 5*float64(k)
		return straight
	case k < 14:
		braking.speed = 195 - 10*float64(k-9)
		return braking
	case k < 26:
		return profile{speed: 140 + 2*math.Abs(float64(k)-19.5), steering: 18, lateralG: 0.9, accel: -0.1}
	case k < 36:
		straight.speed = 151 + 4*float64(k-25)
		return straight
	case k < 40:
		braking.speed = 191 - 10*float64(k-35)
		return braking
	case k < 52:
		return profile{speed: 146 + 2*math.Abs(float64(k)-45.5), steering: -22, lateralG: -1.1, accel: -0.1}
	default:
		straight.speed = 157 - float64(k-51)
		straight.accel = 0
		return straight
	}
}

// Telemetry generates long-format rows for every car and lap of a track.
// Cars run in consecutive time windows so their rows never interleave.
// Each instant also logs a gear channel the detectors ignore.
func Telemetry(track string, cars []int, laps int) []TelemetryRow {
	var rows []TelemetryRow
	step := Step.Milliseconds()
	at := Epoch.UnixMilli()
	for _, car := range cars {
		for lap := 1; lap <= laps; lap++ {
			for k := 0; k < StepsPerLap; k++ {
				p := lapProfile(k)
				base := TelemetryRow{Timestamp: at, Lap: int64(lap), VehicleNumber: int64(car), Track: track}
				for _, ch := range []struct {
					name  string
					value float64
				}{
					{"speed", p.speed},
					{"accy_can", p.lateralG},
					{"steering_angle", p.steering},
					{"accx_can", p.accel},
					{"pbrake_f", p.brakeF},
					{"pbrake_r", p.brakeR},
					{"gear", 3},
				} {
					r := base
					r.TelemetryName = ch.name
					r.TelemetryValue = float(ch.value)
					rows = append(rows, r)
				}
				at += step
			}
		}
	}
	return rows
}

// Sectors generates sector times whose means are 30+i, 40+i and 30+i seconds
// for the i-th track.
func Sectors(track string, i int, cars []int, laps int) []SectorRow {
	var rows []SectorRow
	offset := float64(i)
	for _, car := range cars {
		for lap := 1; lap <= laps; lap++ {
			jitter := 0.2
			if lap%2 == 0 {
				jitter = -0.2
			}
			rows = append(rows, SectorRow{
				Track:     track,
				Number:    int64(car),
				Lap:       int64(lap),
				S1Seconds: 30 + offset + jitter,
				S2Seconds: 40 + offset - jitter,
				S3Seconds: 30 + offset + jitter,
			})
		}
	}
	return rows
}

// Laps generates raceLaps laps per car degrading 0.12 s per lap of tyre age
// from 90 s, with one stop on pitLap. A pitLap outside the race means no stop.
func Laps(track string, cars []int, raceLaps, pitLap int) []LapRow {
	var rows []LapRow
	for _, car := range cars {
		age := 1
		for lap := 1; lap <= raceLaps; lap++ {
			t := 90 + 0.12*float64(age)
			r := LapRow{Track: track, Number: int64(car), LapNumber: int64(lap)}
			if lap == pitLap {
				t += 24.5
				r.PitTime = float(24.5)
			}
			r.LapTime = FormatLapTime(t)
			rows = append(rows, r)
			age++
			if lap == pitLap {
				age = 1
			}
		}
	}
	return rows
}

// FormatLapTime renders seconds as M:SS.sss.
func FormatLapTime(seconds float64) string {
	m := int(seconds) / 60
	return fmt.Sprintf("%d:%06.3f", m, seconds-float64(m*60))
}

// WriteTelemetry writes rows to a snappy-compressed parquet file.
func WriteTelemetry(path string, rows []TelemetryRow) error {
	return write(path, new(TelemetryRow), rows)
}

// WriteSectors writes rows to a snappy-compressed parquet file.
func WriteSectors(path string, rows []SectorRow) error {
	return write(path, new(SectorRow), rows)
}

// WriteLaps writes rows to a snappy-compressed parquet file.
func WriteLaps(path string, rows []LapRow) error {
	return write(path, new(LapRow), rows)
}

// WriteRows writes rows of any parquet-tagged struct to a snappy-compressed
// parquet file.
func WriteRows[T any](path string, rows []T) error {
	return write(path, new(T), rows)
}

func write[T any](path string, schema *T, rows []T) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	pw, err := writer.NewParquetWriter(fw, schema, writeParallelism)
	if err != nil {
		_ = fw.Close()
		return fmt.Errorf("parquet writer for %s: %w", path, err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, r := range rows {
		if err := pw.Write(r); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return fmt.Errorf("finish %s: %w", path, err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func float(v float64) *float64 { return &v }
