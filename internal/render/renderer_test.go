package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-matrix/internal/display"
	"github.com/i474232898/weather-matrix/internal/metrics"
	"github.com/i474232898/weather-matrix/internal/redraw"
	"github.com/i474232898/weather-matrix/internal/weather"
)

// fakeSurface records primitives instead of drawing them.
type fakeSurface struct {
	mu         sync.Mutex
	ops        []string
	texts      []string
	icons      []weather.Condition
	presents   int
	presentErr error
}

func (f *fakeSurface) Bounds() image.Rectangle { return image.Rect(0, 0, 128, 32) }

func (f *fakeSurface) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "clear")
	f.texts = nil
	f.icons = nil
}

func (f *fakeSurface) DrawText(text string, x, y int, c color.Color, size display.SizeClass) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "text")
	f.texts = append(f.texts, text)
}

func (f *fakeSurface) TextWidth(text string, size display.SizeClass) int { return 5 * len(text) }

func (f *fakeSurface) TextHeight(size display.SizeClass) int { return 8 }

func (f *fakeSurface) DrawIcon(cond weather.Condition, x, y, size int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "icon")
	f.icons = append(f.icons, cond)
}

func (f *fakeSurface) DrawLine(p1, p2 image.Point, c color.Color) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "line")
}

func (f *fakeSurface) Present() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "present")
	if f.presentErr != nil {
		return f.presentErr
	}
	f.presents++
	return nil
}

func (f *fakeSurface) presented() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.presents
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeSource struct {
	mu    sync.Mutex
	snap  *weather.Snapshot
	calls int
}

func (s *fakeSource) Current(context.Context, time.Time) *weather.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.snap
}

func (s *fakeSource) set(snap *weather.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}

var t0 = time.Date(2024, 4, 8, 9, 0, 0, 0, time.UTC)

func testSnapshot(id string, temp float64) *weather.Snapshot {
	return &weather.Snapshot{
		ID:      id,
		Current: weather.CurrentConditions{Temperature: temp, Humidity: 40, Condition: weather.ConditionClear},
		Hourly: []weather.HourlyEntry{
			{Hour: "9AM", Temperature: 50, Condition: weather.ConditionClear},
			{Hour: "12PM", Temperature: 55, Condition: weather.ConditionCloudy},
			{Hour: "3PM", Temperature: 58, Condition: weather.ConditionRain},
			{Hour: "6PM", Temperature: 54, Condition: weather.ConditionRain},
			{Hour: "9PM", Temperature: 48, Condition: weather.ConditionCloudy},
			{Hour: "12AM", Temperature: 44, Condition: weather.ConditionClear},
		},
		Daily: []weather.DailyEntry{
			{Day: "Mon", Date: "04/08", High: 58, Low: 44, Condition: weather.ConditionRain},
			{Day: "Tue", Date: "04/09", High: 61, Low: 40, Condition: weather.ConditionClear},
			{Day: "Wed", Date: "04/10", High: 49, Low: 38, Condition: weather.ConditionSnow},
		},
	}
}

func newTestRenderer(src Source, opts ...Option) (*Renderer, *fakeSurface) {
	surface := &fakeSurface{}
	opts = append([]Option{MetricsOption(metrics.New())}, opts...)
	return New(surface, src, redraw.New(100*time.Millisecond), opts...), surface
}

func TestStepWithoutSnapshotLeavesDisplay(t *testing.T) {
	r, surface := newTestRenderer(&fakeSource{})

	assert.False(t, r.Step(context.Background(), t0))
	assert.Empty(t, surface.ops)
	_, drawn := r.Scheduler().State(redraw.ViewCurrent)
	assert.False(t, drawn)
}

func TestCurrentViewRedrawsOnlyOnChange(t *testing.T) {
	src := &fakeSource{snap: testSnapshot("a", 71.6)}
	r, surface := newTestRenderer(src)

	require.True(t, r.Step(context.Background(), t0))
	assert.Contains(t, surface.texts, "72°")
	assert.Contains(t, surface.texts, "Humidity: 40%")
	assert.Equal(t, []weather.Condition{weather.ConditionClear}, surface.icons)
	assert.Equal(t, "clear", surface.ops[0])
	assert.Equal(t, "present", surface.ops[len(surface.ops)-1])

	// a new snapshot with the same rounded temperature and condition
	src.set(testSnapshot("b", 72.2))
	assert.False(t, r.Step(context.Background(), t0.Add(time.Second)))
	assert.Equal(t, 1, surface.presented())

	src.set(testSnapshot("c", 75))
	assert.True(t, r.Step(context.Background(), t0.Add(2*time.Second)))
	assert.Contains(t, surface.texts, "75°")

	state, ok := r.Scheduler().State(redraw.ViewCurrent)
	require.True(t, ok)
	assert.Equal(t, redraw.Key{Temperature: 75, Condition: weather.ConditionClear}, state.Key)
}

func TestFailedPresentIsNotRecorded(t *testing.T) {
	src := &fakeSource{snap: testSnapshot("a", 70)}
	r, surface := newTestRenderer(src)
	surface.presentErr = errors.New("panel unplugged")

	assert.False(t, r.Step(context.Background(), t0))
	_, drawn := r.Scheduler().State(redraw.ViewCurrent)
	assert.False(t, drawn)

	surface.presentErr = nil
	assert.True(t, r.Step(context.Background(), t0.Add(time.Second)))
	_, drawn = r.Scheduler().State(redraw.ViewCurrent)
	assert.True(t, drawn)
}

func TestViewsRotate(t *testing.T) {
	src := &fakeSource{snap: testSnapshot("a", 70)}
	r, surface := newTestRenderer(src, RotationIntervalOption(10*time.Second))
	ctx := context.Background()

	require.True(t, r.Step(ctx, t0))
	assert.Equal(t, redraw.ViewCurrent, r.ActiveView())

	require.True(t, r.Step(ctx, t0.Add(10*time.Second)))
	assert.Equal(t, redraw.ViewHourly, r.ActiveView())
	assert.Contains(t, surface.texts, "HOURLY")

	require.True(t, r.Step(ctx, t0.Add(20*time.Second)))
	assert.Equal(t, redraw.ViewDaily, r.ActiveView())
	assert.Contains(t, surface.texts, "3-DAY FORECAST")
	assert.Contains(t, surface.texts, "MON")
	assert.Contains(t, surface.texts, "44°")
	assert.Contains(t, surface.texts, "58°")
	assert.Equal(t, []weather.Condition{weather.ConditionRain, weather.ConditionClear, weather.ConditionSnow}, surface.icons)

	// daily is static: same snapshot, no redraw
	assert.False(t, r.Step(ctx, t0.Add(25*time.Second)))

	// back on current the first frame is forced even though the key is unchanged
	require.True(t, r.Step(ctx, t0.Add(30*time.Second)))
	assert.Equal(t, redraw.ViewCurrent, r.ActiveView())
}

func TestHourlyScrollAdvancesPerFrameAndWraps(t *testing.T) {
	src := &fakeSource{snap: testSnapshot("a", 70)}
	r, _ := newTestRenderer(src, RotationIntervalOption(time.Hour))
	ctx := context.Background()

	require.True(t, r.Step(ctx, t0))
	now := t0.Add(time.Hour)
	require.True(t, r.Step(ctx, now))
	require.Equal(t, redraw.ViewHourly, r.ActiveView())

	offset := func() int {
		state, ok := r.Scheduler().State(redraw.ViewHourly)
		require.True(t, ok)
		return state.Key.Offset
	}
	assert.Equal(t, 0, offset())

	// frame not due yet
	assert.False(t, r.Step(ctx, now.Add(50*time.Millisecond)))
	assert.Equal(t, 0, offset())

	now = now.Add(100 * time.Millisecond)
	assert.True(t, r.Step(ctx, now))
	assert.Equal(t, 1, offset())

	// 128 px screen + 6 tiles of 64 px
	const wrap = 128 + 6*64
	for i := 2; i < wrap; i++ {
		now = now.Add(100 * time.Millisecond)
		require.True(t, r.Step(ctx, now))
	}
	assert.Equal(t, wrap-1, offset())

	now = now.Add(100 * time.Millisecond)
	require.True(t, r.Step(ctx, now))
	assert.Equal(t, 0, offset())
}

func TestRunBlanksDisplayOnStop(t *testing.T) {
	src := &fakeSource{snap: testSnapshot("a", 70)}
	r, surface := newTestRenderer(src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Eventually(t, func() bool { return surface.presented() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	surface.mu.Lock()
	defer surface.mu.Unlock()
	n := len(surface.ops)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, []string{"clear", "present"}, surface.ops[n-2:])
	assert.Empty(t, surface.texts)
}

func TestRunScrollsOnEveryTick(t *testing.T) {
	src := &fakeSource{snap: testSnapshot("a", 70)}
	surface := &fakeSurface{}
	r := New(surface, src, redraw.New(10*time.Millisecond), RotationIntervalOption(time.Hour))
	r.viewIdx = 1
	require.Equal(t, redraw.ViewHourly, r.ActiveView())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Eventually(t, func() bool { return src.callCount() >= 30 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	calls := src.callCount()
	require.Less(t, calls, 512)
	// one frame per tick plus the final blank frame
	assert.Equal(t, calls+1, surface.presented())

	state, ok := r.Scheduler().State(redraw.ViewHourly)
	require.True(t, ok)
	assert.Equal(t, calls-1, state.Key.Offset)
}
