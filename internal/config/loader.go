package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment names.
const (
	EnvPrefix = "PITWALL_"
	EnvConfig = "PITWALL_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if PITWALL_CONFIG is set
//  3. env (prefix PITWALL_, "__" separates nested keys)
func Load(_ context.Context) (*Config, error) {
	cfg := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PITWALL_QUEUE_SIZE -> queue_size, PITWALL_CORNER__MIN_SEGMENT -> corner.min_segment.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		if s == "CONFIG" {
			return ""
		}
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// A comma separated env value may arrive as one element.
	cfg.Tracks = splitList(strings.Join(cfg.Tracks, ","))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the pipeline cannot run without.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.MaxRows <= 0:
		return fmt.Errorf("%w: max_rows must be positive", ErrInvalidConfig)
	case c.Corner.MinSegment < 0:
		return fmt.Errorf("%w: corner.min_segment must not be negative", ErrInvalidConfig)
	case c.Corner.ExitSteering > c.Corner.EntrySteering || c.Corner.ExitG > c.Corner.EntryG:
		return fmt.Errorf("%w: corner exit thresholds must not exceed entry thresholds", ErrInvalidConfig)
	case c.Strategy.MinLapTime >= c.Strategy.MaxLapTime:
		return fmt.Errorf("%w: strategy.min_lap_time must be below max_lap_time", ErrInvalidConfig)
	case c.Braking.ZoneGap < 0:
		return fmt.Errorf("%w: braking.zone_gap must not be negative", ErrInvalidConfig)
	case c.Strategy.MinSlope <= 0:
		return fmt.Errorf("%w: strategy.min_slope must be positive", ErrInvalidConfig)
	case c.Strategy.MinLaps < 1:
		return fmt.Errorf("%w: strategy.min_laps must be at least 1", ErrInvalidConfig)
	case c.Strategy.MinFitLaps < 2:
		return fmt.Errorf("%w: strategy.min_fit_laps must be at least 2", ErrInvalidConfig)
	case c.Strategy.FillerFactor <= 0:
		return fmt.Errorf("%w: strategy.filler_factor must be positive", ErrInvalidConfig)
	case c.Strategy.RaceLaps < 1:
		return fmt.Errorf("%w: strategy.race_laps must be at least 1", ErrInvalidConfig)
	case !strings.Contains(c.TelemetryPattern, "%s"):
		return fmt.Errorf("%w: telemetry_pattern must contain %%s", ErrInvalidConfig)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
