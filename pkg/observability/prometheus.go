package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shiftsched"

// Metrics implements every hook interface on a private Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	schedules        *prometheus.CounterVec
	scheduleDuration *prometheus.HistogramVec
	rotations        prometheus.Histogram
	improvement      prometheus.Histogram
	rounds           prometheus.Counter
	roundChanges     prometheus.Counter
	window           prometheus.Gauge
	inflight         prometheus.Gauge

	cacheOps *prometheus.CounterVec
	cacheSet *prometheus.HistogramVec

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them together with the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		schedules: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "runs_total",
			Help:      "Scheduling runs by source (search, cache) and status",
		}, []string{"source", "status"}),
		scheduleDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "duration_seconds",
			Help:      "Wall time of a scheduling run",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
		}, []string{"source"}),
		rotations: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "rotations",
			Help:      "Accepted shifts per run",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		improvement: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "improvement_ratio",
			Help:      "Final over initial sum liveness",
			Buckets:   []float64{0.1, 0.25, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 0.99, 1.0},
		}),
		rounds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "rounds_total",
			Help:      "Sweeps of the shift search",
		}),
		roundChanges: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "round_changes_total",
			Help:      "Shifts accepted across all sweeps",
		}),
		window: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "window",
			Help:      "Window size of the most recent sweep",
		}),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "inflight",
			Help:      "Scheduling runs in progress",
		}),

		cacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Cache lookups and writes by key type and result",
		}, []string{"key_type", "result"}),
		cacheSet: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entry_bytes",
			Help:      "Size of cache writes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		}, []string{"key_type"}),

		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"method", "route", "code"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) OnScheduleStart(context.Context, int, int) {
	m.inflight.Inc()
}

func (m *Metrics) OnScheduleComplete(_ context.Context, out Outcome, d time.Duration, err error) {
	m.inflight.Dec()
	status := "ok"
	if err != nil {
		status = "error"
	}
	source := out.Source
	if source == "" {
		source = "search"
	}
	m.schedules.WithLabelValues(source, status).Inc()
	m.scheduleDuration.WithLabelValues(source).Observe(d.Seconds())
	if err != nil || source != "search" {
		return
	}
	m.rotations.Observe(float64(out.NRotations))
	if out.InitialSum > 0 {
		m.improvement.Observe(out.FinalSum / out.InitialSum)
	}
}

func (m *Metrics) OnRound(_ context.Context, _ int64, window int, changes int64, _ time.Duration) {
	m.rounds.Inc()
	m.roundChanges.Add(float64(changes))
	m.window.Set(float64(window))
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheOps.WithLabelValues(keyType, "set").Inc()
	m.cacheSet.WithLabelValues(keyType).Observe(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, method, route string, code int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ SchedulerHooks = (*Metrics)(nil)
	_ CacheHooks     = (*Metrics)(nil)
	_ ServerHooks    = (*Metrics)(nil)
)
