package resolve

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the resolution pipeline.
type Metrics struct {
	LookupsTotal     *prometheus.CounterVec
	ProviderFailures *prometheus.CounterVec
	DroppedJobs      prometheus.Counter
	QueueDepth       prometheus.Gauge
}

// NewMetrics creates and registers pipeline metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "sightline_lookups_total", Help: "Completed resolution runs by outcome"},
			[]string{"outcome"}),
		ProviderFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "sightline_provider_failures_total", Help: "Provider errors by provider"},
			[]string{"provider"}),
		DroppedJobs: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "sightline_lookup_jobs_dropped_total", Help: "Lookup jobs dropped because the queue was full"}),
		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "sightline_lookup_queue_depth", Help: "Lookup jobs waiting for a worker"}),
	}
	if reg != nil {
		reg.MustRegister(m.LookupsTotal, m.ProviderFailures, m.DroppedJobs, m.QueueDepth)
	}
	return m
}

func (m *Metrics) IncLookup(outcome string) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncProviderFailure(provider string) {
	if m == nil {
		return
	}
	m.ProviderFailures.WithLabelValues(provider).Inc()
}

func (m *Metrics) IncDropped() {
	if m == nil {
		return
	}
	m.DroppedJobs.Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
