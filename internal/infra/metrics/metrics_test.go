package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/snps-steve/bd-selfscan-sub001/internal/infra/metrics"
)

func TestMetrics_Record(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.RecordJobCreated("payments", "Billing")
	m.RecordJobCreated("payments", "Billing")
	m.RecordPolicyViolation("payments", "Billing")
	m.RecordJobCompleted("payments", "Billing", "PolicyViolation", 90*time.Second)
	m.SetActiveJobs(3)
	m.SetHealthy(false)
	m.ObservePing("registry-store", 2*time.Millisecond, nil)
	m.ObservePing("registry-store", 5*time.Millisecond, errors.New("load failed"))

	require.InDelta(t, 2, testutil.ToFloat64(m.JobsCreated().WithLabelValues("payments", "Billing")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.PolicyViolations().WithLabelValues("payments", "Billing")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(
		m.JobsCompleted().WithLabelValues("payments", "Billing", "PolicyViolation"),
	), 0)
	require.InDelta(t, 3, testutil.ToFloat64(m.ActiveJobs()), 0)
	require.InDelta(t, 0, testutil.ToFloat64(m.ControllerHealthy()), 0)

	count, err := testutil.GatherAndCount(reg, "bd_selfscan_job_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, err = testutil.GatherAndCount(reg, "bd_selfscan_component_ping_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestNew_SeparateRegistries(t *testing.T) {
	t.Parallel()

	// Each registry gets its own collectors, so constructing twice must not panic.
	require.NotPanics(t, func() {
		metrics.New(prometheus.NewRegistry())
		metrics.New(prometheus.NewRegistry())
	})
}
