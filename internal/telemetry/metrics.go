// Package telemetry holds the Prometheus metrics and the OpenTelemetry
// tracer shared by the pipeline components.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Tool call outcomes
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomeUnusable = "unusable"
)

// Cache lookup results
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// Metrics groups the pipeline's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	toolCalls         *prometheus.CounterVec
	toolDuration      *prometheus.HistogramVec
	cacheLookups      *prometheus.CounterVec
	memoryLookups     *prometheus.CounterVec
	events            *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg creates unregistered collectors.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		// operations counts public pipeline operations by resulting status
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Pipeline operations by operation and resulting status",
		}, []string{"operation", "status"}),

		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Pipeline operation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		}, []string{"operation"}),

		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Verification tool invocations by tool and outcome",
		}, []string{"tool", "outcome"}),

		toolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Verification tool latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"tool"}),

		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "In-process cache lookups by cache and result",
		}, []string{"cache", "result"}),

		memoryLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_lookups_total",
			Help:      "Durable memory lookups by result",
		}, []string{"result"}),

		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Verification events by publish result",
		}, []string{"result"}),
	}
}

// Operation records one pipeline operation
func (m *Metrics) Operation(name, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(name, status).Inc()
	m.operationDuration.WithLabelValues(name).Observe(d.Seconds())
}

// ToolCall records one tool invocation
func (m *Metrics) ToolCall(tool, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// CacheLookup records a hit or miss on a named cache
func (m *Metrics) CacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := ResultMiss
	if hit {
		result = ResultHit
	}
	m.cacheLookups.WithLabelValues(cache, result).Inc()
}

// MemoryLookup records a durable memory lookup result
func (m *Metrics) MemoryLookup(result string) {
	if m == nil {
		return
	}
	m.memoryLookups.WithLabelValues(result).Inc()
}

// EventPublished records an event publish attempt
func (m *Metrics) EventPublished(err error) {
	if m == nil {
		return
	}
	result := OutcomeOK
	if err != nil {
		result = OutcomeError
	}
	m.events.WithLabelValues(result).Inc()
}

// Tracer returns the tracer used for pipeline spans
func Tracer() trace.Tracer {
	return otel.Tracer("github.com/ppiankov/verity")
}
