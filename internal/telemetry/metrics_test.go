package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithRegistryRegistersEveryMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)
	require.NotNil(t, m)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	for _, f := range families {
		assert.Contains(t, f.GetName(), namespace+"_")
	}
}

func TestMetricsAreUsable(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.QueueDepth.WithLabelValues("critical").Set(3)
	m.DLQDepth.Set(1)
	m.ClassifyLatency.Observe(0.12)
	m.ReasonLatency.WithLabelValues("flash").Observe(0.5)
	m.ToolCallsTotal.WithLabelValues("mail_draft_reply", "success").Inc()
	m.LLMCallsTotal.WithLabelValues("gemini", "fast", "success").Inc()
	m.PollerRunsTotal.WithLabelValues("mail", "success").Inc()
	m.EventsPublished.WithLabelValues("mail").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
