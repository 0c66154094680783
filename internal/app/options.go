package service

import (
	"context"

	"github.com/okian/pitwall/internal/config"
	"github.com/okian/pitwall/internal/domain/align"
	"github.com/okian/pitwall/internal/domain/sector"
	"github.com/okian/pitwall/internal/domain/strategy"
	"github.com/okian/pitwall/pkg/logger"
)

// SectorSource returns the per-lap sector table of a track.
type SectorSource interface {
	Table(ctx context.Context, track string) (sector.Table, error)
}

// LapSource returns the per-lap timing table of a track.
type LapSource interface {
	Table(ctx context.Context, track string) (strategy.Table, error)
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the configuration. Sources not set explicitly are built
// from its data paths.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithTelemetrySource overrides the raw telemetry source.
func WithTelemetrySource(src align.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.telemetry = src
		}
	}
}

// WithSectorSource overrides the sector table source.
func WithSectorSource(src SectorSource) Option {
	return func(s *Service) {
		if src != nil {
			s.sectors = src
		}
	}
}

// WithLapSource overrides the lap table source.
func WithLapSource(src LapSource) Option {
	return func(s *Service) {
		if src != nil {
			s.laps = src
		}
	}
}

// WithWorkerCount sets the number of build workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
