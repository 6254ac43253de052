package ingest

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the track endpoint. Labels never
// include addresses or user agents.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RateLimitedTotal prometheus.Counter
}

// NewMetrics creates and registers ingest metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "sightline_track_requests_total", Help: "Track requests by status"},
			[]string{"status"}),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "sightline_track_rate_limited_total", Help: "Track requests rejected by the rate guard"}),
	}
	if reg != nil {
		reg.MustRegister(m.RequestsTotal, m.RateLimitedTotal)
	}
	return m
}

func (m *Metrics) IncRequests(status int) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}
