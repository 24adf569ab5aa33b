package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-matrix/internal/weather"
)

// Warmer is the part of weather.Cache the prefetch job needs.
type Warmer interface {
	Current(ctx context.Context, now time.Time) *weather.Snapshot
}

// Scheduler periodically warms the weather cache so the render loop rarely
// waits on the network. Runs never overlap.
type Scheduler struct {
	scheduler *gocron.Scheduler
	cache     Warmer
	interval  time.Duration
	log       *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
}

func New(cache Warmer, interval time.Duration, log *zap.SugaredLogger) *Scheduler {
	if interval <= 0 {
		interval = weather.DefaultRefreshInterval
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	return &Scheduler{
		scheduler: s,
		cache:     cache,
		interval:  interval,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the prefetch job, first run immediately.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(s.RunOnce); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.log.Infow("Prefetch scheduler started", "interval", s.interval.String())
	return nil
}

// RunOnce asks the cache for a snapshot, fetching if it is stale.
func (s *Scheduler) RunOnce() bool {
	start := time.Now()
	snap := s.cache.Current(s.ctx, start)
	if snap == nil {
		s.log.Warnw("Prefetch found no snapshot", "elapsed", time.Since(start).String())
		return false
	}
	s.log.Debugw("Prefetch complete", "snapshot", snap.ID, "fetchedAt", snap.FetchedAt)
	return true
}

// Stop cancels in-flight work and stops future runs.
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
}
