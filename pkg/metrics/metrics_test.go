package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordNode(t *testing.T) {
	c := NewCollector("test")

	c.RecordNode("HTTP_REQUEST", 10*time.Millisecond, nil)
	c.RecordNode("HTTP_REQUEST", 10*time.Millisecond, errors.New("boom"))
	c.RecordNode("HTTP_REQUEST", 10*time.Millisecond, nil)

	assert.InDelta(t, 2, testutil.ToFloat64(c.nodeExecutions.WithLabelValues("HTTP_REQUEST", ResultSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.nodeExecutions.WithLabelValues("HTTP_REQUEST", ResultError)), 0)
}

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("")

	c.RecordRun("manual", time.Second, nil)
	c.RecordPublishFailure("status")
	c.RecordExecutionRequest("google-form")
	c.RecordCheckpointsPurged(3)
	c.RecordCheckpointsPurged(0)

	assert.InDelta(t, 1, testutil.ToFloat64(c.runs.WithLabelValues("manual", ResultSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.publishFailures.WithLabelValues("status")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.executionRequests.WithLabelValues("google-form")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(c.checkpointsPurged), 0)
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.RecordNode("X", time.Second, nil)
		c.RecordRun("manual", time.Second, nil)
		c.RecordPublishFailure("status")
		c.RecordExecutionRequest("manual")
		c.RecordCheckpointsPurged(1)
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("nodebase")
	c.RecordRun("manual", time.Second, nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nodebase_workflow_runs_total")
}
