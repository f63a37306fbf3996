package telemetry

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetricsServesCountersAndGauges(t *testing.T) {
	m := NewPrometheusMetrics()
	m.IncCounter("workflow_nodes_completed_total", 1, "workflow_id", "wf-1")
	m.IncCounter("workflow_nodes_completed_total", 2, "workflow_id", "wf-1")
	m.RecordGauge("workflow_active_count", 3)
	m.RecordTimer("node_dispatch_seconds", 250*time.Millisecond, "kind", "tool")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "workflow_nodes_completed_total")
	assert.Contains(t, body, "workflow_active_count 3")
	assert.Contains(t, body, "node_dispatch_seconds")
}

func TestPrometheusMetricsReusesVectorsAcrossCalls(t *testing.T) {
	m := NewPrometheusMetrics()
	m.IncCounter("calls_total", 1, "op", "a")
	m.IncCounter("calls_total", 1, "op", "b")

	require.Len(t, m.counters, 1, "same name+label-keys must reuse one CounterVec")
}
