// Package metrics holds the Prometheus collectors for inbound page traffic,
// outbound food API calls, and image uploads.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	PageDuration   *prometheus.HistogramVec
	APIDuration    *prometheus.HistogramVec
	UploadAttempts *prometheus.CounterVec
	Mutations      *prometheus.CounterVec
	MountedViews   prometheus.Gauge
}

// New builds a registry with the runtime collectors and the foodshare
// collectors registered on it.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "foodshare",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of inbound HTTP requests in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "status"},
		),
		APIDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "foodshare",
				Subsystem: "api",
				Name:      "call_duration_seconds",
				Help:      "Duration of food API calls in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "outcome"},
		),
		UploadAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "foodshare",
				Subsystem: "images",
				Name:      "upload_attempts_total",
				Help:      "Image upload attempts by phase and outcome.",
			},
			[]string{"phase", "outcome"},
		),
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "foodshare",
				Subsystem: "views",
				Name:      "mutations_total",
				Help:      "Optimistic mutations by action and final phase.",
			},
			[]string{"action", "phase"},
		),
		MountedViews: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "foodshare",
			Subsystem: "views",
			Name:      "mounted",
			Help:      "Views currently held by the registry.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.PageDuration,
		m.APIDuration,
		m.UploadAttempts,
		m.Mutations,
		m.MountedViews,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Outcome maps an error to a low-cardinality label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// The helpers below accept a nil *Metrics so callers built without metrics
// (tests, the CLI) do not need to guard every call.

func (m *Metrics) ObserveAPI(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.APIDuration.WithLabelValues(operation, Outcome(err)).Observe(time.Since(started).Seconds())
}

func (m *Metrics) CountUpload(phase string, err error) {
	if m == nil {
		return
	}
	m.UploadAttempts.WithLabelValues(phase, Outcome(err)).Inc()
}

func (m *Metrics) CountMutation(action, phase string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(action, phase).Inc()
}

func (m *Metrics) SetMountedViews(n int) {
	if m == nil {
		return
	}
	m.MountedViews.Set(float64(n))
}

func (m *Metrics) ObservePage(method string, status int, started time.Time) {
	if m == nil {
		return
	}
	m.PageDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(time.Since(started).Seconds())
}
