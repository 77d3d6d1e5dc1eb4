package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	require.NotNil(t, m)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.HTTPRequestDuration)
	assert.NotNil(t, m.ReservationsTotal)
	assert.NotNil(t, m.StatusChangesTotal)
}

func TestObserveReservation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.ObserveReservation(OutcomeSuccess)
	m.ObserveReservation(OutcomeSuccess)
	m.ObserveReservation(OutcomeConflict)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReservationsTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReservationsTotal.WithLabelValues(OutcomeConflict)))
}

func TestObserveStatusChange(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.ObserveStatusChange("confirmed", OutcomeSuccess)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "reservation_status_changes_total" {
			found = true
			assert.Equal(t, 1, len(f.GetMetric()))
		}
	}
	assert.True(t, found, "reservation_status_changes_total metric not found")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveReservation(OutcomeError)
		m.ObserveStatusChange("confirmed", OutcomeError)
	})
}
