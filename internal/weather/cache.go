package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/i474232898/weather-matrix/internal/metrics"
)

const (
	DefaultRefreshInterval = 300 * time.Second
	DefaultFetchTimeout    = 10 * time.Second

	refreshKey = "refresh"
)

// CacheConfig describes what the cache fetches and how often.
type CacheConfig struct {
	Place Place
	// Coordinates skips geocoding when set.
	Coordinates     *Coordinates
	Units           Units
	RefreshInterval time.Duration
	FetchTimeout    time.Duration
}

type CacheOption func(*Cache)

func RecorderOption(r Recorder) CacheOption {
	return func(c *Cache) {
		c.recorder = r
	}
}

func MetricsOption(m *metrics.Metrics) CacheOption {
	return func(c *Cache) {
		c.metrics = m
	}
}

func LoggerOption(l *zap.SugaredLogger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// Cache holds the last successful snapshot and refreshes it once it is older
// than the refresh interval. A failed refresh drops the snapshot.
type Cache struct {
	provider Provider
	cfg      CacheConfig
	recorder Recorder
	metrics  *metrics.Metrics
	log      *zap.SugaredLogger

	group singleflight.Group

	mu        sync.RWMutex
	snapshot  *Snapshot
	lastFetch time.Time
	coords    *Coordinates
}

// NewCache creates a Cache in front of provider.
func NewCache(provider Provider, cfg CacheConfig, opts ...CacheOption) *Cache {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.Units == "" {
		cfg.Units = UnitsImperial
	}

	c := &Cache{
		provider: provider,
		cfg:      cfg,
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the snapshot, refreshing it first when it is absent or
// older than the refresh interval. It never fails: fetch errors are logged and
// yield a nil snapshot.
func (c *Cache) Current(ctx context.Context, now time.Time) *Snapshot {
	c.mu.RLock()
	snap := c.snapshot
	fresh := snap != nil && !c.staleLocked(now)
	c.mu.RUnlock()
	if fresh {
		return snap
	}

	v, _, _ := c.group.Do(refreshKey, func() (interface{}, error) {
		return c.refresh(ctx, now), nil
	})
	s, _ := v.(*Snapshot)
	return s
}

// Peek returns the current snapshot without triggering a fetch.
func (c *Cache) Peek() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Config returns the effective configuration after defaults.
func (c *Cache) Config() CacheConfig {
	return c.cfg
}

func (c *Cache) staleLocked(now time.Time) bool {
	return now.Sub(c.lastFetch) > c.cfg.RefreshInterval
}

func (c *Cache) refresh(ctx context.Context, now time.Time) *Snapshot {
	c.mu.RLock()
	if c.snapshot != nil && !c.staleLocked(now) {
		snap := c.snapshot
		c.mu.RUnlock()
		return snap
	}
	c.mu.RUnlock()

	start := time.Now()
	fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	snap, err := c.fetch(fetchCtx, now)
	if err != nil {
		if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
			err = fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		kind := ErrorKind(err)
		c.log.Errorw("Weather fetch failed",
			"place", c.cfg.Place.Query(),
			"kind", kind,
			"error", err,
		)
		c.metrics.FetchFailed(kind, time.Since(start))

		c.mu.Lock()
		c.snapshot = nil
		c.mu.Unlock()
		return nil
	}

	c.mu.Lock()
	c.snapshot = snap
	c.lastFetch = now
	c.mu.Unlock()

	c.metrics.FetchSucceeded(time.Since(start))
	if c.recorder != nil {
		c.recorder.SaveSnapshot(c.cfg.Place, *snap)
	}
	c.log.Infow("Weather data updated",
		"place", c.cfg.Place.Query(),
		"snapshot", snap.ID,
		"hourly", len(snap.Hourly),
		"daily", len(snap.Daily),
	)
	return snap
}

func (c *Cache) fetch(ctx context.Context, now time.Time) (*Snapshot, error) {
	coords, err := c.coordinates(ctx)
	if err != nil {
		return nil, err
	}

	var (
		current CurrentConditions
		samples []RawForecastSample
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = c.provider.FetchCurrent(gctx, coords, c.cfg.Units)
		return err
	})
	g.Go(func() error {
		var err error
		samples, err = c.provider.FetchForecast(gctx, coords, c.cfg.Units)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	hourly, daily := Aggregate(samples)
	return &Snapshot{
		ID:        uuid.NewString(),
		Location:  c.cfg.Place,
		Units:     c.cfg.Units,
		Current:   current,
		Hourly:    hourly,
		Daily:     daily,
		FetchedAt: now,
	}, nil
}

// coordinates resolves the configured place once and reuses the result.
func (c *Cache) coordinates(ctx context.Context) (Coordinates, error) {
	if c.cfg.Coordinates != nil {
		return *c.cfg.Coordinates, nil
	}

	c.mu.RLock()
	cached := c.coords
	c.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}

	coords, err := c.provider.ResolveLocation(ctx, c.cfg.Place)
	if err != nil {
		return Coordinates{}, err
	}
	c.log.Infow("Resolved location",
		"place", c.cfg.Place.Query(),
		"lat", coords.Lat,
		"lon", coords.Lon,
	)

	c.mu.Lock()
	c.coords = &coords
	c.mu.Unlock()
	return coords, nil
}
