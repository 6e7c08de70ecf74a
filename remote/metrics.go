package remote

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are kept on a registry owned by the server so that several
// servers can live in one process
type Metrics struct {
	registry *prometheus.Registry

	Sessions      prometheus.Gauge
	SessionsTotal *prometheus.CounterVec
	Steps         *prometheus.CounterVec
	Resets        prometheus.Counter
	Latency       *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gridrl",
			Name:      "sessions_active",
			Help:      "Number of open environment sessions",
		}),
		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridrl",
			Name:      "sessions_created_total",
			Help:      "Environment sessions created, by action type",
		}, []string{"act_type"}),
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridrl",
			Name:      "steps_total",
			Help:      "Environment steps, by outcome",
		}, []string{"outcome"}),
		Resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gridrl",
			Name:      "resets_total",
			Help:      "Environment resets",
		}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gridrl",
			Name:      "request_duration_seconds",
			Help:      "Duration of environment calls",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"op"}),
	}
	m.registry.MustRegister(m.Sessions, m.SessionsTotal, m.Steps, m.Resets, m.Latency)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func stepOutcome(terminated, truncated bool) string {
	switch {
	case terminated:
		return "terminated"
	case truncated:
		return "truncated"
	}
	return "running"
}
