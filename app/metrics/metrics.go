package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "feed_posse"

// Metrics holds the collectors of one bot instance on its own registry, so
// tests and multiple instances never collide on the default registerer.
type Metrics struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	posts        prometheus.Counter
	mediaUploads prometheus.Counter
	failures     *prometheus.CounterVec
	lastPost     prometheus.Gauge
	lastRun      prometheus.Gauge
	runDuration  prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed runs by result status.",
		}, []string{"status"}),
		posts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_total",
			Help:      "Statuses published.",
		}),
		mediaUploads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_uploads_total",
			Help:      "Image attachments uploaded with published statuses.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failed runs by error kind.",
		}, []string{"kind"}),
		lastPost: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_post_timestamp_seconds",
			Help:      "Unix time of the last published status.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last finished run.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of runs.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.runs,
		m.posts,
		m.mediaUploads,
		m.failures,
		m.lastPost,
		m.lastRun,
		m.runDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records a finished run. status is the result status, or
// "error" for failed runs.
func (m *Metrics) ObserveRun(status string, finishedAt time.Time, duration time.Duration) {
	m.runs.WithLabelValues(status).Inc()
	m.lastRun.Set(float64(finishedAt.Unix()))
	m.runDuration.Observe(duration.Seconds())
}

func (m *Metrics) ObservePost(postedAt time.Time, mediaCount int) {
	m.posts.Inc()
	m.mediaUploads.Add(float64(mediaCount))
	m.lastPost.Set(float64(postedAt.Unix()))
}

func (m *Metrics) ObserveFailure(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	m.failures.WithLabelValues(kind).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
