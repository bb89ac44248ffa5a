// ABOUTME: Prometheus collectors for relay traffic, live instances, lifecycle events and host API requests.

package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/2389/shell-bridge/internal/relay"
	"github.com/2389/shell-bridge/internal/service"
	"github.com/2389/shell-bridge/internal/shell"
)

const namespace = "shell_bridge"

// LiveCounter reports how many service instances are open.
type LiveCounter interface {
	LiveCount() int
}

var _ LiveCounter = (*service.Registry)(nil)

// Sources are read at scrape time. Nil sources are skipped.
type Sources struct {
	Relay    *relay.Relay
	Registry LiveCounter
	Hub      *relay.Hub
}

// Metrics owns a private Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	lifecycle    *prometheus.CounterVec
	hostRequests *prometheus.CounterVec
	duplicates   prometheus.Counter
}

var _ shell.Observer = (*Metrics)(nil)

// New registers the collectors for src plus the Go runtime and process collectors.
func New(src Sources) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		lifecycle: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "shell",
				Name:      "lifecycle_events_total",
				Help:      "Coordinator lifecycle transitions by kind",
			},
			[]string{"kind"},
		),

		hostRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "host_api",
				Name:      "requests_total",
				Help:      "Host API requests by route and status code",
			},
			[]string{"route", "code"},
		),

		duplicates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "host_api",
				Name:      "duplicate_requests_total",
				Help:      "Host API requests acknowledged without being applied again",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.lifecycle,
		m.hostRequests,
		m.duplicates,
	)

	if rl := src.Relay; rl != nil {
		m.registry.MustRegister(
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "relay",
				Name:      "delivered_total",
				Help:      "Pushes handed to the runtime delivery function",
			}, func() float64 { return float64(rl.Stats().Delivered) }),

			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "relay",
				Name:      "dropped_total",
				Help:      "Pushes dropped because the instance was closed or no delivery function was installed",
			}, func() float64 { return float64(rl.Stats().Dropped) }),
		)
	}

	if reg := src.Registry; reg != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "services",
			Name:      "live_instances",
			Help:      "Service instances currently open",
		}, func() float64 { return float64(reg.LiveCount()) }))
	}

	if hub := src.Hub; hub != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "subscribers",
			Help:      "Runtime subscriptions currently attached",
		}, func() float64 { return float64(hub.SubscriberCount()) }))
	}

	return m
}

// OnLifecycleEvent counts e by kind.
func (m *Metrics) OnLifecycleEvent(e shell.LifecycleEvent) {
	m.lifecycle.WithLabelValues(string(e.Kind)).Inc()
}

// ObserveHostRequest counts one host API request.
func (m *Metrics) ObserveHostRequest(route string, code int) {
	m.hostRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// ObserveDuplicate counts one deduplicated host API request.
func (m *Metrics) ObserveDuplicate() {
	m.duplicates.Inc()
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
