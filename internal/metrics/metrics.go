// Package metrics exposes watchdog activity to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"procwatch/internal/watchdog"
)

// Counts reports how many entries exist and how many are bound.
type Counts func() (entries, bound int)

// Collector tracks watchdog events and registry size.
type Collector struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
}

// New registers the event counter on a private registry. Registry gauges
// are added by TrackRegistry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procwatch_events_total",
				Help: "Watchdog events by kind",
			},
			[]string{"kind"},
		),
	}
	c.registry.MustRegister(c.events)
	for _, k := range []watchdog.EventKind{
		watchdog.EventBound,
		watchdog.EventExited,
		watchdog.EventKilled,
		watchdog.EventKillFailed,
		watchdog.EventSnapshotFailed,
	} {
		c.events.WithLabelValues(k.String())
	}
	return c
}

// TrackRegistry adds gauges that read the registry size on every scrape.
func (c *Collector) TrackRegistry(counts Counts) {
	c.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "procwatch_entries",
			Help: "Registered watch entries",
		}, func() float64 {
			n, _ := counts()
			return float64(n)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "procwatch_bound_entries",
			Help: "Watch entries currently bound to a process",
		}, func() float64 {
			_, n := counts()
			return float64(n)
		}),
	)
}

// Observe counts one event. It matches the watchdog observer signature.
func (c *Collector) Observe(ev watchdog.Event) {
	c.events.WithLabelValues(ev.Kind.String()).Inc()
}

// Gatherer exposes the private registry.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// Handler serves the metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
