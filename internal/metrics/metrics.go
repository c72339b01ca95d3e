// Package metrics exposes host counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wasmtoys"

// Metrics holds every collector the host reports to. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	frames         prometheus.Counter
	frameSeconds   prometheus.Histogram
	inputEvents    *prometheus.CounterVec
	workers        prometheus.Gauge
	workerMessages *prometheus.CounterVec
	handles        *prometheus.GaugeVec
	guestErrors    *prometheus.CounterVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		frames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames driven into the module",
		}),
		frameSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Time spent in internal_update per frame",
			Buckets:   []float64{.001, .0025, .005, .01, .0167, .025, .05, .1},
		}),
		inputEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_events_total",
			Help:      "Input events forwarded by kind and whether the module consumed them",
		}, []string{"kind", "consumed"}),
		workers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Workers forked by the module",
		}),
		workerMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_messages_total",
			Help:      "Messages exchanged with workers by direction and type",
		}, []string{"direction", "type"}),
		handles: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gl_handles",
			Help:      "GL handle table slots by kind and state",
		}, []string{"kind", "state"}),
		guestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guest_call_errors_total",
			Help:      "Failed calls into module exports",
		}, []string{"export"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFrame records one frame and how long the update took.
func (m *Metrics) ObserveFrame(d time.Duration) {
	if m == nil {
		return
	}
	m.frames.Inc()
	m.frameSeconds.Observe(d.Seconds())
}

// InputEvent records a forwarded input event.
func (m *Metrics) InputEvent(kind string, consumed bool) {
	if m == nil {
		return
	}
	c := "false"
	if consumed {
		c = "true"
	}
	m.inputEvents.WithLabelValues(kind, c).Inc()
}

// SetWorkers sets the number of live workers.
func (m *Metrics) SetWorkers(n int) {
	if m == nil {
		return
	}
	m.workers.Set(float64(n))
}

// WorkerMessage records a message sent "to" or "from" a worker.
func (m *Metrics) WorkerMessage(direction, typ string) {
	if m == nil {
		return
	}
	m.workerMessages.WithLabelValues(direction, typ).Inc()
}

// SetHandles records the size of one handle table.
func (m *Metrics) SetHandles(kind string, allocated, live int) {
	if m == nil {
		return
	}
	m.handles.WithLabelValues(kind, "allocated").Set(float64(allocated))
	m.handles.WithLabelValues(kind, "live").Set(float64(live))
}

// GuestError records a failed export call.
func (m *Metrics) GuestError(export string) {
	if m == nil {
		return
	}
	m.guestErrors.WithLabelValues(export).Inc()
}

// NewServer returns an HTTP server exposing /metrics for m.
func NewServer(addr string, m *Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
}
