package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Reservation outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Metrics holds the application's Prometheus collectors.
type Metrics struct {
	// HTTP requests by method, route and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP latency by method and route.
	HTTPRequestDuration *prometheus.HistogramVec

	// Reserve attempts by outcome: success, conflict, invalid, error.
	ReservationsTotal *prometheus.CounterVec

	// Status transitions by target status and outcome.
	StatusChangesTotal *prometheus.CounterVec
}

// NewWithRegistry registers the collectors with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ReservationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservations_total",
				Help: "Total number of reservation attempts",
			},
			[]string{"outcome"},
		),
		StatusChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservation_status_changes_total",
				Help: "Total number of reservation status transitions",
			},
			[]string{"status", "outcome"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReservationsTotal,
		m.StatusChangesTotal,
	)

	return m
}

// ObserveReservation counts one reserve attempt. Safe on a nil receiver.
func (m *Metrics) ObserveReservation(outcome string) {
	if m == nil {
		return
	}
	m.ReservationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStatusChange counts one status transition attempt. Safe on a nil receiver.
func (m *Metrics) ObserveStatusChange(status, outcome string) {
	if m == nil {
		return
	}
	m.StatusChangesTotal.WithLabelValues(status, outcome).Inc()
}
