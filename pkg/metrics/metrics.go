// Package metrics collects prometheus telemetry for workflow runs.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultSuccess = "success"
	ResultError   = "error"
)

type Collector struct {
	registry *prometheus.Registry

	nodeExecutions    *prometheus.CounterVec
	nodeDuration      *prometheus.HistogramVec
	runs              *prometheus.CounterVec
	runDuration       prometheus.Histogram
	publishFailures   *prometheus.CounterVec
	executionRequests *prometheus.CounterVec
	checkpointsPurged prometheus.Counter
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "nodebase"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.nodeExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "executions_total",
			Help:      "Total number of node executions",
		},
		[]string{"type", "result"},
	)

	c.nodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "execution_duration_seconds",
			Help:      "Time taken to execute a node",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"type", "result"},
	)

	c.runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "runs_total",
			Help:      "Total number of workflow runs",
		},
		[]string{"trigger", "result"},
	)

	c.runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "run_duration_seconds",
			Help:      "Time taken to walk a workflow",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		},
	)

	c.publishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "status",
			Name:      "publish_failures_total",
			Help:      "Status messages that could not be delivered to the realtime broker",
		},
		[]string{"topic"},
	)

	c.executionRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "execution_requests_total",
			Help:      "Executions requested through the API",
		},
		[]string{"trigger"},
	)

	c.checkpointsPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "steps",
			Name:      "checkpoints_purged_total",
			Help:      "Step checkpoints removed by the janitor",
		},
	)

	c.registry.MustRegister(
		c.nodeExecutions,
		c.nodeDuration,
		c.runs,
		c.runDuration,
		c.publishFailures,
		c.executionRequests,
		c.checkpointsPurged,
	)

	return c
}

// Registry returns the prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collected metrics in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}

	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return ResultError
	}

	return ResultSuccess
}

func (c *Collector) RecordNode(nodeType string, duration time.Duration, err error) {
	if c == nil {
		return
	}

	c.nodeExecutions.WithLabelValues(nodeType, result(err)).Inc()
	c.nodeDuration.WithLabelValues(nodeType, result(err)).Observe(duration.Seconds())
}

func (c *Collector) RecordRun(trigger string, duration time.Duration, err error) {
	if c == nil {
		return
	}

	c.runs.WithLabelValues(trigger, result(err)).Inc()
	c.runDuration.Observe(duration.Seconds())
}

func (c *Collector) RecordPublishFailure(topic string) {
	if c == nil {
		return
	}

	c.publishFailures.WithLabelValues(topic).Inc()
}

func (c *Collector) RecordExecutionRequest(trigger string) {
	if c == nil {
		return
	}

	c.executionRequests.WithLabelValues(trigger).Inc()
}

func (c *Collector) RecordCheckpointsPurged(n int64) {
	if c == nil || n <= 0 {
		return
	}

	c.checkpointsPurged.Add(float64(n))
}
