// Package render runs the display loop: it rotates between the current,
// hourly and daily views, pulls snapshots from the weather cache and repaints
// the surface when the redraw scheduler says so.
package render

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-matrix/internal/display"
	"github.com/i474232898/weather-matrix/internal/metrics"
	"github.com/i474232898/weather-matrix/internal/redraw"
	"github.com/i474232898/weather-matrix/internal/weather"
)

const DefaultRotationInterval = 10 * time.Second

// Source supplies the snapshot to draw. *weather.Cache implements it.
type Source interface {
	Current(ctx context.Context, now time.Time) *weather.Snapshot
}

type Option func(*Renderer)

func RotationIntervalOption(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.rotation = d
		}
	}
}

func MetricsOption(m *metrics.Metrics) Option {
	return func(r *Renderer) {
		r.metrics = m
	}
}

func LoggerOption(l *zap.SugaredLogger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.log = l
		}
	}
}

// Renderer is the only writer of its surface.
type Renderer struct {
	surface  display.Surface
	source   Source
	sched    *redraw.Scheduler
	rotation time.Duration
	metrics  *metrics.Metrics
	log      *zap.SugaredLogger

	mu         sync.RWMutex
	viewIdx    int
	switchedAt time.Time
	offset     int
	force      bool
}

func New(surface display.Surface, source Source, sched *redraw.Scheduler, opts ...Option) *Renderer {
	if sched == nil {
		sched = redraw.New(redraw.DefaultFrameInterval)
	}
	r := &Renderer{
		surface:  surface,
		source:   source,
		sched:    sched,
		rotation: DefaultRotationInterval,
		log:      zap.NewNop().Sugar(),
		force:    true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ActiveView is the view currently on screen.
func (r *Renderer) ActiveView() redraw.View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return redraw.Views[r.viewIdx]
}

// Scheduler exposes the redraw state for status reporting.
func (r *Renderer) Scheduler() *redraw.Scheduler {
	return r.sched
}

// Run draws until ctx is done, then blanks the display. Cancellation is only
// observed between frames.
//
// Frames are stamped with the tick time rather than the wall clock, so
// consecutive ticks are exactly one frame interval apart and scheduling jitter
// never makes a scroll frame look early.
func (r *Renderer) Run(ctx context.Context) error {
	now := time.Now()
	ticker := time.NewTicker(r.sched.FrameInterval())
	defer ticker.Stop()

	r.log.Infow("Render loop started",
		"frameInterval", r.sched.FrameInterval().String(),
		"rotationInterval", r.rotation.String(),
	)

	for {
		r.Step(ctx, now)

		select {
		case <-ctx.Done():
			r.surface.Clear()
			if err := r.surface.Present(); err != nil {
				r.log.Warnw("Failed to blank display", "error", err)
			}
			r.log.Infow("Render loop stopped")
			return nil
		case now = <-ticker.C:
		}
	}
}

// Step runs one iteration of the loop at now and reports whether a frame was
// presented.
func (r *Renderer) Step(ctx context.Context, now time.Time) bool {
	view, force := r.rotate(now)

	snap := r.source.Current(ctx, now)
	if snap == nil {
		r.metrics.Skipped(string(view))
		return false
	}

	var (
		key  redraw.Key
		draw func(*weather.Snapshot)
	)
	switch view {
	case redraw.ViewCurrent:
		key = redraw.Key{
			Temperature: roundTemp(snap.Current.Temperature),
			Condition:   snap.Current.Condition,
		}
		draw = r.drawCurrent
	case redraw.ViewHourly:
		offset := r.advanceOffset(view, now, len(snap.Hourly))
		key = redraw.Key{Offset: offset, SnapshotID: snap.ID}
		draw = func(s *weather.Snapshot) { r.drawHourly(s, offset) }
	default:
		key = redraw.Key{SnapshotID: snap.ID}
		draw = r.drawDaily
	}

	if !r.sched.ShouldRedraw(view, now, force, key) {
		r.metrics.Skipped(string(view))
		return false
	}

	r.surface.Clear()
	draw(snap)
	if err := r.surface.Present(); err != nil {
		r.log.Warnw("Failed to present frame", "view", view, "error", err)
		return false
	}

	r.sched.RecordDraw(view, now, key)
	r.mu.Lock()
	r.force = false
	r.mu.Unlock()
	r.metrics.Redrawn(string(view))
	return true
}

// rotate advances to the next view once the rotation interval has passed.
// The first frame of every view is forced.
func (r *Renderer) rotate(now time.Time) (redraw.View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.switchedAt.IsZero() {
		r.switchedAt = now
	}
	if now.Sub(r.switchedAt) >= r.rotation {
		r.viewIdx = (r.viewIdx + 1) % len(redraw.Views)
		r.switchedAt = now
		r.offset = 0
		r.force = true
		r.sched.Reset(redraw.Views[r.viewIdx])
		r.log.Debugw("Rotated view", "view", redraw.Views[r.viewIdx])
	}
	return redraw.Views[r.viewIdx], r.force
}

// advanceOffset moves the hourly scroll by one pixel per due frame and wraps
// once every tile has scrolled off the left edge.
func (r *Renderer) advanceOffset(view redraw.View, now time.Time, tiles int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, drawn := r.sched.State(view); drawn && r.sched.FrameDue(view, now) {
		w := r.surface.Bounds().Dx()
		wrap := w + tiles*(w/2)
		r.offset++
		if wrap > 0 && r.offset >= wrap {
			r.offset = 0
		}
	}
	return r.offset
}

func roundTemp(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Round(v))
}
