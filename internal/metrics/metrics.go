// Package metrics holds the Prometheus collectors for fetches and redraws.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	fetchTotal    *prometheus.CounterVec
	fetchErrors   *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	redraws       *prometheus.CounterVec
	skipped       *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		fetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_fetch_total",
			Help: "Weather fetch attempts by result",
		}, []string{"result"}),
		fetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_fetch_errors_total",
			Help: "Failed weather fetches by error kind",
		}, []string{"kind"}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "weather_fetch_duration_seconds",
			Help:    "Time taken by a full weather refresh",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		redraws: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "display_redraws_total",
			Help: "Frames presented to the display by view",
		}, []string{"view"}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "display_frames_skipped_total",
			Help: "Render iterations that did not redraw, by view",
		}, []string{"view"}),
	}
}

func (m *Metrics) FetchSucceeded(d time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues("success").Inc()
	m.fetchDuration.Observe(d.Seconds())
}

func (m *Metrics) FetchFailed(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues("failure").Inc()
	m.fetchErrors.WithLabelValues(kind).Inc()
	m.fetchDuration.Observe(d.Seconds())
}

func (m *Metrics) Redrawn(view string) {
	if m == nil {
		return
	}
	m.redraws.WithLabelValues(view).Inc()
}

func (m *Metrics) Skipped(view string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(view).Inc()
}
