// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Thresholds and caps are named values here, never literals in detectors.
// - New builds a Config with defaults; Load layers file and env on top.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DataDir holds the parquet telemetry, sector and lap tables.
	DataDir string `koanf:"data_dir"`

	// TelemetryPattern is a fmt pattern taking the track name.
	TelemetryPattern string `koanf:"telemetry_pattern"`

	SectorsFile string `koanf:"sectors_file"`
	LapsFile    string `koanf:"laps_file"`

	// OutputFile receives the nested track metadata JSON after a build.
	OutputFile string `koanf:"output_file"`

	// Tracks lists the tracks BuildAll processes.
	Tracks []string `koanf:"tracks"`

	// WorkerCount sets the number of track build workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size"`

	// MaxRows caps raw samples loaded per track.
	MaxRows int `koanf:"max_rows"`

	Corner   Corner   `koanf:"corner"`
	Braking  Braking  `koanf:"braking"`
	Strategy Strategy `koanf:"strategy"`
}

// Corner holds segmenter thresholds.
type Corner struct {
	EntrySteering float64 `koanf:"entry_steering"`
	EntryG        float64 `koanf:"entry_g"`
	ExitSteering  float64 `koanf:"exit_steering"`
	ExitG         float64 `koanf:"exit_g"`
	MinSegment    int     `koanf:"min_segment"`
}

// Braking holds detector thresholds.
type Braking struct {
	SpeedDrop float64 `koanf:"speed_drop"`
	Accel     float64 `koanf:"accel"`
	Pressure  float64 `koanf:"pressure"`
	// ZoneGap is the largest gap in seconds between braking points of one zone.
	ZoneGap float64 `koanf:"zone_gap"`
}

// Strategy holds simulator tunables.
type Strategy struct {
	MinLapTime     float64 `koanf:"min_lap_time"`
	MaxLapTime     float64 `koanf:"max_lap_time"`
	MinLaps        int     `koanf:"min_laps"`
	BaselinePace   float64 `koanf:"baseline_pace"`
	FillerFactor   float64 `koanf:"filler_factor"`
	DefaultPitLoss float64 `koanf:"default_pit_loss"`
	SlowLapFactor  float64 `koanf:"slow_lap_factor"`
	MinFitLaps     int     `koanf:"min_fit_laps"`
	MinSlope       float64 `koanf:"min_slope"`
	RaceLaps       int     `koanf:"race_laps"`
}

// DefaultTracks are the circuits shipped with the sample dataset.
var DefaultTracks = []string{"sonoma", "indy", "cota", "road_america", "virginia", "barber", "sebring"} //nolint:gochecknoglobals // default list

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		DataDir:          "data",
		TelemetryPattern: "telemetry_%s_*.parquet",
		SectorsFile:      "sectors.parquet",
		LapsFile:         "laps.parquet",
		OutputFile:       "track_metadata.json",
		Tracks:           append([]string(nil), DefaultTracks...),
		WorkerCount:      runtime.NumCPU(),
		QueueSize:        64,
		MaxRows:          100_000,
		Corner: Corner{
			EntrySteering: 5,
			EntryG:        0.15,
			ExitSteering:  3,
			ExitG:         0.10,
			MinSegment:    8,
		},
		Braking: Braking{
			SpeedDrop: -4.0,
			Accel:     -0.2,
			Pressure:  5.0,
			ZoneGap:   0.25,
		},
		Strategy: Strategy{
			MinLapTime:     20,
			MaxLapTime:     300,
			MinLaps:        5,
			BaselinePace:   120,
			FillerFactor:   1.02,
			DefaultPitLoss: 20,
			SlowLapFactor:  1.2,
			MinFitLaps:     4,
			MinSlope:       0.02,
			RaceLaps:       30,
		},
	}
}
