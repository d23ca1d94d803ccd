// Package metrics exposes jukebox counters in the Prometheus exposition format.
//
// Collectors are registered on a private registry so daemons and tests can
// create independent instances. All methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jukebox"

// Submission results recorded by ObserveSubmission.
const (
	SubmissionAccepted    = "accepted"
	SubmissionDuplicate   = "duplicate"
	SubmissionNotFound    = "not_found"
	SubmissionInvalid     = "invalid"
	SubmissionRateLimited = "rate_limited"
	SubmissionError       = "error"
)

// Metrics holds the collectors updated by playback and the API.
type Metrics struct {
	registry *prometheus.Registry

	tracksPlayed     *prometheus.CounterVec
	playbackFailures *prometheus.CounterVec
	fillersAdded     prometheus.Counter
	submissions      *prometheus.CounterVec
	playDuration     prometheus.Histogram
	queueDepth       *prometheus.GaugeVec
}

// New creates a Metrics instance with its own registry, including Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tracksPlayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_played_total",
			Help:      "Tracks played to completion, by source.",
		}, []string{"source"}),
		playbackFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_failures_total",
			Help:      "Consumed requests whose playback failed, by failure kind.",
		}, []string{"kind"}),
		fillersAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fillers_added_total",
			Help:      "Random filler requests inserted by backfill.",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_submissions_total",
			Help:      "Song request submissions, by result.",
		}, []string{"result"}),
		playDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "playback_duration_seconds",
			Help:      "Wall time spent playing a track.",
			Buckets:   []float64{10, 30, 60, 120, 180, 240, 300, 420, 600, 900},
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Active requests waiting to play, by kind.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.tracksPlayed,
		m.playbackFailures,
		m.fillersAdded,
		m.submissions,
		m.playDuration,
		m.queueDepth,
	)
	return m
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObservePlay records a completed track.
func (m *Metrics) ObservePlay(filler bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	source := "requested"
	if filler {
		source = "filler"
	}
	m.tracksPlayed.WithLabelValues(source).Inc()
	m.playDuration.Observe(elapsed.Seconds())
}

// ObserveFailure records a failed playback.
func (m *Metrics) ObserveFailure(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.playbackFailures.WithLabelValues(kind).Inc()
}

// AddFillers records backfilled requests.
func (m *Metrics) AddFillers(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.fillersAdded.Add(float64(n))
}

// ObserveSubmission records the outcome of a request submission.
func (m *Metrics) ObserveSubmission(result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result).Inc()
}

// SetQueueDepth publishes the number of active requests.
func (m *Metrics) SetQueueDepth(requested, fillers int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues("requested").Set(float64(requested))
	m.queueDepth.WithLabelValues("filler").Set(float64(fillers))
}
