// Package metrics holds the Prometheus collectors for the detection pipeline.
// All methods are safe on a nil *Metrics so components can run unmetered.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EventsRecorded     *prometheus.CounterVec
	RecognizerCalls    *prometheus.CounterVec
	RecognizerFailures *prometheus.CounterVec
	RecognizerLatency  *prometheus.HistogramVec
	CacheLookups       *prometheus.CounterVec
	DigestRuns         *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// the server and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leakwatch_detection_events_recorded_total",
			Help: "Detection events appended to the store, by sensitivity level",
		}, []string{"level"}),
		RecognizerCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leakwatch_recognizer_calls_total",
			Help: "Calls made to the entity recognizer",
		}, []string{"provider"}),
		RecognizerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leakwatch_recognizer_failures_total",
			Help: "Failed entity recognizer calls",
		}, []string{"provider"}),
		RecognizerLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "leakwatch_recognizer_duration_seconds",
			Help:    "Entity recognizer call latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"provider"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leakwatch_recognizer_cache_lookups_total",
			Help: "Recognizer cache lookups, by result",
		}, []string{"result"}),
		DigestRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leakwatch_digest_runs_total",
			Help: "Scheduled leak digest runs, by status",
		}, []string{"status"}),
	}
}

func (m *Metrics) ObserveEvent(level string) {
	if m == nil {
		return
	}
	m.EventsRecorded.WithLabelValues(level).Inc()
}

func (m *Metrics) ObserveRecognizerCall(provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.RecognizerCalls.WithLabelValues(provider).Inc()
	m.RecognizerLatency.WithLabelValues(provider).Observe(d.Seconds())
	if err != nil {
		m.RecognizerFailures.WithLabelValues(provider).Inc()
	}
}

func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveDigestRun(err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.DigestRuns.WithLabelValues(status).Inc()
}
