// Package service wires the telemetry stores, detectors, strategy simulator
// and worker pool behind the operations the CLI and HTTP API need.
package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/samber/lo"

	jobqueue "github.com/okian/pitwall/internal/adapters/mq/queue"
	workerpool "github.com/okian/pitwall/internal/adapters/mq/worker"
	"github.com/okian/pitwall/internal/adapters/store"
	"github.com/okian/pitwall/internal/config"
	"github.com/okian/pitwall/internal/domain/align"
	"github.com/okian/pitwall/internal/domain/braking"
	"github.com/okian/pitwall/internal/domain/corner"
	"github.com/okian/pitwall/internal/domain/dedupe"
	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/sector"
	"github.com/okian/pitwall/internal/domain/strategy"
	"github.com/okian/pitwall/internal/domain/telemetry"
	"github.com/okian/pitwall/pkg/logger"
	"github.com/okian/pitwall/pkg/metrics"
)

const submitBackoff = 10 * time.Millisecond

// Channels each detector loads. Each load is capped separately.
//
//nolint:gochecknoglobals // channel sets
var (
	cornerSignals  = []telemetry.Signal{telemetry.Speed, telemetry.LateralG, telemetry.SteeringAngle}
	brakingSignals = []telemetry.Signal{telemetry.Speed, telemetry.LongitudinalAccel, telemetry.BrakeFront, telemetry.BrakeRear}
)

// Service builds and serves track metadata and pit strategies.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Sources
	telemetry align.Source
	sectors   SectorSource
	laps      LapSource

	// Detectors
	aligner   *align.Aligner
	segmenter *corner.Segmenter
	detector  *braking.Detector
	simulator *strategy.Simulator

	// Jobs
	metadata *store.Metadata
	deduper  dedupe.Deduper
	queue    jobqueue.Queue
	pool     *workerpool.Pool

	waitMu  sync.Mutex
	waiters map[string][]chan workerpool.Result

	workerCount int
	queueSize   int

	started bool
	logger  logger.Logger
}

// New constructs a Service. logger.Init must have been called.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:     config.New(),
		waiters: make(map[string][]chan workerpool.Result),
	}
	for _, opt := range opts {
		opt(s)
	}

	cfg := s.cfg
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.workerCount == 0 {
		s.workerCount = cfg.WorkerCount
	}
	if s.queueSize == 0 {
		s.queueSize = cfg.QueueSize
	}
	if s.telemetry == nil {
		s.telemetry = store.NewTelemetry(cfg.DataDir, cfg.TelemetryPattern)
	}
	if s.sectors == nil {
		s.sectors = store.NewSectors(filepath.Join(cfg.DataDir, cfg.SectorsFile))
	}
	if s.laps == nil {
		s.laps = store.NewLaps(filepath.Join(cfg.DataDir, cfg.LapsFile))
	}

	s.aligner = align.New(s.telemetry,
		align.WithMaxRows(cfg.MaxRows),
		align.WithLogger(s.logger.Named("aligner")),
	)
	s.segmenter = corner.New(corner.Config{
		EntrySteering: cfg.Corner.EntrySteering,
		EntryG:        cfg.Corner.EntryG,
		ExitSteering:  cfg.Corner.ExitSteering,
		ExitG:         cfg.Corner.ExitG,
		MinSegment:    cfg.Corner.MinSegment,
	})
	s.detector = braking.New(braking.Config{
		SpeedDrop: cfg.Braking.SpeedDrop,
		Accel:     cfg.Braking.Accel,
		Pressure:  cfg.Braking.Pressure,
	})
	s.simulator = strategy.New(strategy.Config{
		MinLapTime:     cfg.Strategy.MinLapTime,
		MaxLapTime:     cfg.Strategy.MaxLapTime,
		MinLaps:        cfg.Strategy.MinLaps,
		BaselinePace:   cfg.Strategy.BaselinePace,
		FillerFactor:   cfg.Strategy.FillerFactor,
		DefaultPitLoss: cfg.Strategy.DefaultPitLoss,
		SlowLapFactor:  cfg.Strategy.SlowLapFactor,
		MinFitLaps:     cfg.Strategy.MinFitLaps,
		MinSlope:       cfg.Strategy.MinSlope,
	})
	s.metadata = store.NewMetadata()
	// Claims are released when their job finishes, so the set stays small.
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
	return s
}

// Start creates the job queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.queue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s, s.metadata,
		workerpool.WithOnDone(s.onDone),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "track metadata service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("dataDir", s.cfg.DataDir),
	)
	return nil
}

// Stop closes the queue, waits for workers and fails pending waiters.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping track metadata service...")
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}

	s.waitMu.Lock()
	for track, chans := range s.waiters {
		for _, ch := range chans {
			ch <- workerpool.Result{Job: model.Job{Track: track}, Err: ErrNotStarted}
		}
	}
	s.waiters = make(map[string][]chan workerpool.Result)
	s.waitMu.Unlock()

	// Jobs left in the closed queue never finish.
	for _, track := range s.deduper.InFlight() {
		s.deduper.Unrecord(ctx, track)
	}

	s.started = false
	s.logger.Info(ctx, "track metadata service stopped")
}

// Build computes the metadata of one track without storing it. Missing
// channels and unavailable sector data are recorded as warnings; only store
// failures are errors.
func (s *Service) Build(ctx context.Context, track string) (model.TrackMetadata, error) {
	meta := model.TrackMetadata{Track: track}

	cornerFrame, err := s.aligner.Frame(ctx, track, cornerSignals)
	if err != nil {
		return meta, s.queryFailure(ctx, track, err)
	}
	start := time.Now()
	corners, err := s.segmenter.Detect(cornerFrame)
	metrics.RecordDetectLatency("corner", float64(time.Since(start).Milliseconds()))
	if err = s.absorb(ctx, &meta, "corner", cornerFrame, err); err != nil {
		return meta, err
	}

	brakingFrame, err := s.aligner.Frame(ctx, track, brakingSignals)
	if err != nil {
		return meta, s.queryFailure(ctx, track, err)
	}
	start = time.Now()
	events, err := s.detector.Detect(brakingFrame)
	metrics.RecordDetectLatency("braking", float64(time.Since(start).Milliseconds()))
	if err = s.absorb(ctx, &meta, "braking", brakingFrame, err); err != nil {
		return meta, err
	}

	table, err := s.sectors.Table(ctx, track)
	if err != nil {
		return meta, s.queryFailure(ctx, track, err)
	}
	summary, err := sector.Aggregate(table)
	switch {
	case errors.Is(err, sector.ErrUnavailable):
		metrics.RecordSectorSummary("unavailable")
		meta.Warnings = append(meta.Warnings, err.Error())
		s.logger.Warn(ctx, "sector statistics unavailable", logger.Track(track), logger.Error(err))
	case err != nil:
		return meta, err
	default:
		metrics.RecordSectorSummary("ok")
	}

	meta.Sectors = summary
	meta.Corners = corners
	meta.BrakingPoints = events
	meta.BrakingZones = braking.Zones(events, s.cfg.Braking.ZoneGap)
	meta.BuiltAt = time.Now().UTC()
	meta.Normalize()

	metrics.RecordCorners(track, len(corners))
	metrics.RecordBrakingEvents(track, len(events))
	s.logger.Info(ctx, "track metadata built",
		logger.Track(track),
		logger.Int("corners", len(corners)),
		logger.Int("braking_points", len(events)),
		logger.Int("braking_zones", len(meta.BrakingZones)),
		logger.Bool("sectors", summary != nil),
	)
	return meta, nil
}

// absorb turns soft detector failures and empty frames into warnings.
func (s *Service) absorb(ctx context.Context, meta *model.TrackMetadata, component string, frame telemetry.Frame, err error) error {
	switch {
	case err != nil && !telemetry.IsSoft(err):
		return fmt.Errorf("%s detection for %s: %w", component, meta.Track, err)
	case err != nil:
		metrics.RecordMissingSignal(component, meta.Track)
		meta.Warnings = append(meta.Warnings, fmt.Sprintf("%s: %v", component, err))
		s.logger.Warn(ctx, "missing signal", logger.Track(meta.Track), logger.String("detector", component), logger.Error(err))
	case frame.Empty():
		meta.Warnings = append(meta.Warnings, fmt.Sprintf("%s: %v: no telemetry", component, telemetry.ErrInsufficientData))
	}
	return nil
}

func (s *Service) queryFailure(ctx context.Context, track string, err error) error {
	metrics.RecordErrorByComponent("service", "query_failure")
	s.logger.Error(ctx, "columnar store query failed", logger.Track(track), logger.Error(err))
	return err
}

// BuildTrack builds and stores the metadata of one track synchronously.
func (s *Service) BuildTrack(ctx context.Context, track string) (model.TrackMetadata, error) {
	meta, err := s.Build(ctx, track)
	if err != nil {
		return meta, err
	}
	if err := s.metadata.Put(ctx, meta); err != nil {
		return meta, err
	}
	return meta, nil
}

// BuildAll runs one job per track on the worker pool and waits for all of
// them. An empty list means the configured tracks. Tracks that failed are
// missing from the map and reported in the joined error.
func (s *Service) BuildAll(ctx context.Context, tracks []string) (map[string]model.TrackMetadata, error) {
	if len(tracks) == 0 {
		tracks = s.cfg.Tracks
	}
	tracks = lo.Uniq(tracks)

	waits := make(map[string]chan workerpool.Result, len(tracks))
	defer func() {
		for track, ch := range waits {
			s.cancelWait(track, ch)
		}
	}()

	for _, track := range tracks {
		waits[track] = s.wait(track)
		if err := s.submit(ctx, track); err != nil {
			return nil, err
		}
	}

	out := make(map[string]model.TrackMetadata, len(tracks))
	var errs []error
	for _, track := range tracks {
		select {
		case res := <-waits[track]:
			if res.Err != nil {
				errs = append(errs, fmt.Errorf("build %s: %w", track, res.Err))
				continue
			}
			out[track] = res.Meta
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
	return out, errors.Join(errs...)
}

// submit enqueues a build job, waiting while the queue is full.
func (s *Service) submit(ctx context.Context, track string) error {
	for {
		_, err := s.enqueue(ctx, track, "build")
		if !errors.Is(err, jobqueue.ErrFull) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(submitBackoff):
		}
	}
}

// Enqueue schedules an asynchronous rebuild of track. duplicate is true when
// a job for the track is already queued or running.
func (s *Service) Enqueue(ctx context.Context, track string) (duplicate bool, err error) {
	return s.enqueue(ctx, track, "rebuild")
}

func (s *Service) enqueue(ctx context.Context, track, reason string) (bool, error) {
	s.mu.RLock()
	started, q := s.started, s.queue
	s.mu.RUnlock()
	if !started {
		return false, ErrNotStarted
	}

	if s.deduper.SeenAndRecord(ctx, track) {
		s.logger.Debug(ctx, "track build already in flight", logger.Track(track))
		return true, nil
	}

	job := model.NewJob(track, reason)
	if err := q.Enqueue(ctx, job); err != nil {
		s.deduper.Unrecord(ctx, track)
		return false, fmt.Errorf("enqueue %s: %w", track, err)
	}
	metrics.UpdateQueueSize(q.Len(ctx))
	s.logger.Debug(ctx, "track build queued",
		logger.Track(track),
		logger.String("job_id", job.ID),
		logger.String("reason", reason),
	)
	return false, nil
}

func (s *Service) onDone(ctx context.Context, res workerpool.Result) {
	s.deduper.Unrecord(ctx, res.Job.Track)

	s.waitMu.Lock()
	chans := s.waiters[res.Job.Track]
	delete(s.waiters, res.Job.Track)
	s.waitMu.Unlock()

	for _, ch := range chans {
		ch <- res
	}
}

func (s *Service) wait(track string) chan workerpool.Result {
	ch := make(chan workerpool.Result, 1)
	s.waitMu.Lock()
	s.waiters[track] = append(s.waiters[track], ch)
	s.waitMu.Unlock()
	return ch
}

func (s *Service) cancelWait(track string, ch chan workerpool.Result) {
	s.waitMu.Lock()
	defer s.waitMu.Unlock()
	rest := lo.Filter(s.waiters[track], func(c chan workerpool.Result, _ int) bool { return c != ch })
	if len(rest) == 0 {
		delete(s.waiters, track)
		return
	}
	s.waiters[track] = rest
}

// Metadata returns the stored metadata of track.
func (s *Service) Metadata(ctx context.Context, track string) (model.TrackMetadata, error) {
	return s.metadata.Get(ctx, track)
}

// Tracks lists tracks with stored metadata.
func (s *Service) Tracks(ctx context.Context) []string {
	return s.metadata.Tracks(ctx)
}

// Export writes all stored metadata as indented JSON to path.
func (s *Service) Export(ctx context.Context, path string) error {
	return store.WriteJSON(path, s.metadata.Snapshot(ctx))
}

// Cars lists the cars with lap data on track.
func (s *Service) Cars(ctx context.Context, track string) ([]string, error) {
	table, err := s.laps.Table(ctx, track)
	if err != nil {
		return nil, s.queryFailure(ctx, track, err)
	}
	return table.Cars(), nil
}

// Strategy compares pit plans for one car over raceLaps laps. A
// non-positive raceLaps uses the configured race length.
func (s *Service) Strategy(ctx context.Context, track, car string, raceLaps int) (strategy.Result, error) {
	table, err := s.laps.Table(ctx, track)
	if err != nil {
		return strategy.Result{}, s.queryFailure(ctx, track, err)
	}
	h, err := table.History(car)
	if err != nil {
		s.logger.Warn(ctx, "no lap history", logger.Track(track), logger.Car(car), logger.Error(err))
		return strategy.Result{}, fmt.Errorf("%w: %w", ErrNoLapData, err)
	}
	if raceLaps <= 0 {
		raceLaps = s.cfg.Strategy.RaceLaps
	}

	res := s.simulator.Run(h, raceLaps)
	metrics.RecordStrategyRun(res.Fillers)
	metrics.RecordBestStops(strconv.Itoa(res.Best.StopCount))
	if res.Fillers > 0 {
		s.logger.Warn(ctx, "sparse lap history padded",
			logger.Track(track),
			logger.Car(car),
			logger.Int("filler_laps", res.Fillers),
		)
	}
	s.logger.Debug(ctx, "strategy simulated",
		logger.Track(track),
		logger.Car(car),
		logger.String("best", res.Best.Strategy),
		logger.Float64("pit_loss", res.PitLoss),
		logger.String("pit_loss_source", res.PitLossSource),
	)
	return res, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"storedTracks": s.metadata.Count(),
		"inFlight":     s.deduper.InFlight(),
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["processed"] = s.pool.Processed()
		stats["failed"] = s.pool.Failed()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}
	return stats
}
