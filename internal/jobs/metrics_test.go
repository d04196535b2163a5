package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("gl:integrity").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("gl:integrity").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("gl:integrity", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("gl:integrity", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("gl:integrity")))
}

func TestAddAnomaliesIgnoresEmptyFindings(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.AddAnomalies("ledger_imbalance", 3, 0)
	m.AddAnomalies("ledger_imbalance", 3, 2)
	m.AddAnomalies("ledger_imbalance", 3, 1)

	require.Equal(t, 3.0, testutil.ToFloat64(m.anomalies.WithLabelValues("ledger_imbalance", "3")))
	require.Equal(t, 1, testutil.CollectAndCount(m.anomalies))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.AddAnomalies("inventory_drift", 1, 5)
	require.NoError(t, m.Track("inventory:reconcile").End(nil))
}
