// Package telemetry exposes the agent's Prometheus metrics: queue depth,
// dead-letter count, classify/reason latency, and tool call outcomes.
// Grounded on the metrics-registration shape
// pkg/gateway/metrics_test.go exercises against kubernaut's
// NewMetricsWithRegistry constructor — no concrete non-test definition of
// that package reached this pack, so the metric set and naming here are
// self-designed against prometheus/client_golang's standard promauto
// idiom rather than copied from a specific file (see DESIGN.md).
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "agent1"

// Metrics holds every exported Prometheus collector.
type Metrics struct {
	QueueDepth       *prometheus.GaugeVec
	DLQDepth         prometheus.Gauge
	ClassifyLatency  prometheus.Histogram
	ReasonLatency    *prometheus.HistogramVec
	ToolCallsTotal   *prometheus.CounterVec
	LLMCallsTotal    *prometheus.CounterVec
	PollerRunsTotal  *prometheus.CounterVec
	EventsPublished  *prometheus.CounterVec
}

// New registers every metric against the default Prometheus registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers every metric against reg, letting tests use an
// isolated prometheus.NewRegistry() instead of the process-global default.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Number of pending events in the priority queue, by priority label.",
		}, []string{"priority"}),

		DLQDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dlq_depth",
			Help:      "Number of unresolved dead-letter events.",
		}),

		ClassifyLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classify_latency_seconds",
			Help:      "Latency of the classification LLM call.",
			Buckets:   prometheus.DefBuckets,
		}),

		ReasonLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reason_latency_seconds",
			Help:      "Latency of one reasoning-loop turn, by tier.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tier"}),

		ToolCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool invocations, by tool name and outcome.",
		}, []string{"tool", "outcome"}),

		LLMCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "LLM calls, by provider, tier, and outcome.",
		}, []string{"provider", "tier", "outcome"}),

		PollerRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poller_runs_total",
			Help:      "Poller ticks, by source and outcome.",
		}, []string{"source", "outcome"}),

		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events published to the queue, by source.",
		}, []string{"source"}),
	}
}
