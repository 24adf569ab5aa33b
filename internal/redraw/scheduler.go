// Package redraw decides when a display view needs to be repainted.
//
// Each view remembers the key it was last drawn with and when. A view is
// redrawn when forced, when it has never been drawn, or when its key changed.
// Scrolling views are additionally redrawn once per frame interval so the
// scroll animation keeps moving.
package redraw

import (
	"sync"
	"time"

	"github.com/i474232898/weather-matrix/internal/weather"
)

// DefaultFrameInterval is the minimum time between frames of a scrolling view.
const DefaultFrameInterval = 100 * time.Millisecond

type View string

const (
	ViewCurrent View = "current"
	ViewHourly  View = "hourly"
	ViewDaily   View = "daily"
)

// Views lists the rotation order.
var Views = []View{ViewCurrent, ViewHourly, ViewDaily}

// Key is the minimal state whose change should trigger a repaint.
// Views leave the fields they do not use at their zero value.
type Key struct {
	Temperature int               `json:"temperature,omitempty"`
	Condition   weather.Condition `json:"condition,omitempty"`
	Offset      int               `json:"offset,omitempty"`
	SnapshotID  string            `json:"snapshotId,omitempty"`
}

// ViewState is what was last rendered for a view.
type ViewState struct {
	Key      Key       `json:"key"`
	LastDraw time.Time `json:"lastDraw"`
}

// Scheduler holds per-view render state.
type Scheduler struct {
	frameInterval time.Duration
	scrolling     map[View]bool

	mu     sync.RWMutex
	states map[View]ViewState
}

// New creates a Scheduler. Views listed in scrolling get the frame-interval
// redraw; with none listed, the hourly view scrolls.
func New(frameInterval time.Duration, scrolling ...View) *Scheduler {
	if frameInterval <= 0 {
		frameInterval = DefaultFrameInterval
	}
	if len(scrolling) == 0 {
		scrolling = []View{ViewHourly}
	}

	s := &Scheduler{
		frameInterval: frameInterval,
		scrolling:     make(map[View]bool, len(scrolling)),
		states:        make(map[View]ViewState),
	}
	for _, v := range scrolling {
		s.scrolling[v] = true
	}
	return s
}

// ShouldRedraw reports whether view must be repainted for key at now.
// It does not change any state.
func (s *Scheduler) ShouldRedraw(view View, now time.Time, force bool, key Key) bool {
	if force {
		return true
	}

	s.mu.RLock()
	state, ok := s.states[view]
	s.mu.RUnlock()

	switch {
	case !ok:
		return true
	case state.Key != key:
		return true
	case s.scrolling[view] && now.Sub(state.LastDraw) >= s.frameInterval:
		return true
	default:
		return false
	}
}

// FrameDue reports whether the frame interval has elapsed since view was last
// drawn. Scrolling views only advance their offset when a frame is due.
func (s *Scheduler) FrameDue(view View, now time.Time) bool {
	s.mu.RLock()
	state, ok := s.states[view]
	s.mu.RUnlock()
	return !ok || now.Sub(state.LastDraw) >= s.frameInterval
}

// RecordDraw commits a successful render.
func (s *Scheduler) RecordDraw(view View, now time.Time, key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[view] = ViewState{Key: key, LastDraw: now}
}

// Reset forgets what was drawn for view.
func (s *Scheduler) Reset(view View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, view)
}

// State returns the last committed render of view.
func (s *Scheduler) State(view View) (ViewState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[view]
	return state, ok
}

// FrameInterval returns the configured minimum frame spacing.
func (s *Scheduler) FrameInterval() time.Duration {
	return s.frameInterval
}
