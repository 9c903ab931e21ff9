package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("verity", reg)

	m.Operation("deep_verify", "verified", 20*time.Millisecond)
	m.ToolCall("calculator", OutcomeOK, time.Millisecond)
	m.ToolCall("calculator", OutcomeTimeout, time.Second)
	m.CacheLookup("verification", true)
	m.CacheLookup("verification", false)
	m.CacheLookup("verification", false)
	m.MemoryLookup(ResultHit)
	m.EventPublished(nil)
	m.EventPublished(errors.New("down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("deep_verify", "verified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("calculator", OutcomeTimeout)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("verification", ResultMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.memoryLookups.WithLabelValues(ResultHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues(OutcomeError)))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "verity_tool_calls_total")
	assert.Contains(t, names, "verity_operation_duration_seconds")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Operation("x", "y", time.Second)
		m.ToolCall("x", OutcomeOK, time.Second)
		m.CacheLookup("x", true)
		m.MemoryLookup(ResultMiss)
		m.EventPublished(nil)
	})
}

func TestNewMetrics_NilRegisterer(t *testing.T) {
	// Unregistered collectors allow several instances side by side
	assert.NotPanics(t, func() {
		NewMetrics("verity", nil)
		NewMetrics("verity", nil)
	})
}

func TestTracer(t *testing.T) {
	assert.NotNil(t, Tracer())
}
