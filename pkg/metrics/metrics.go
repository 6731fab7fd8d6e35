// Package metrics exposes Prometheus counters for dispatch and board
// traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dispatch outcomes.
const (
	OutcomeDelivered = "delivered"
	OutcomeRejected  = "rejected"
	OutcomeGone      = "gone"
	OutcomeError     = "error"
)

// Metrics holds the service's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	DispatchTotal    *prometheus.CounterVec
	DispatchDuration prometheus.Histogram
	BoardMessages    *prometheus.CounterVec
	BoardConnections prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the collectors on a private registry that also carries the
// standard Go and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		DispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pushboard_dispatch_total",
				Help: "Total number of web push dispatches by outcome",
			},
			[]string{"outcome"},
		),
		DispatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pushboard_dispatch_duration_seconds",
				Help:    "Time spent delivering to the push service",
				Buckets: prometheus.DefBuckets,
			},
		),
		BoardMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pushboard_board_messages_total",
				Help: "Total number of board messages by direction",
			},
			[]string{"direction"},
		),
		BoardConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pushboard_board_connections",
				Help: "Currently connected board websocket clients",
			},
		),
		registry: registry,
	}

	registry.MustRegister(m.DispatchTotal, m.DispatchDuration, m.BoardMessages, m.BoardConnections)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveDispatch(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DispatchTotal.WithLabelValues(outcome).Inc()
	m.DispatchDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) BoardMessage(direction string) {
	if m == nil {
		return
	}
	m.BoardMessages.WithLabelValues(direction).Inc()
}

func (m *Metrics) BoardConnected(delta float64) {
	if m == nil {
		return
	}
	m.BoardConnections.Add(delta)
}
