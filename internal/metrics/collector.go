// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector aggregates the engine's Prometheus metrics.
type Collector struct {
	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Orchestration metrics
	orchestrationsTotal   *prometheus.CounterVec
	orchestrationDuration *prometheus.HistogramVec

	// Per-agent call metrics
	agentCallsTotal *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	costUSD         *prometheus.CounterVec
}

// NewCollector registers the engine's metrics under the given namespace
// with the provided registerer. Passing prometheus.DefaultRegisterer is
// the common case; tests pass a private registry.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		orchestrationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orchestrations_total",
				Help:      "Total number of orchestration invocations",
			},
			[]string{"mode", "outcome"},
		),
		orchestrationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "orchestration_duration_seconds",
				Help:      "Orchestration invocation duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"mode"},
		),
		agentCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_calls_total",
				Help:      "Total number of per-agent capability calls",
			},
			[]string{"agent_id", "status"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_used_total",
				Help:      "Total tokens consumed, by model",
			},
			[]string{"model"},
		),
		costUSD: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cost_usd_total",
				Help:      "Total USD cost, by model",
			},
			[]string{"model"},
		),
	}
}

// RecordHTTPRequest records one HTTP request.
func (c *Collector) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOrchestration records one orchestration invocation.
func (c *Collector) RecordOrchestration(mode, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.orchestrationsTotal.WithLabelValues(mode, outcome).Inc()
	c.orchestrationDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordAgentCall records one per-agent capability call.
func (c *Collector) RecordAgentCall(agentID, status string) {
	if c == nil {
		return
	}
	c.agentCallsTotal.WithLabelValues(agentID, status).Inc()
}

// RecordUsage records token and cost consumption for a model.
func (c *Collector) RecordUsage(model string, tokens int, cost float64) {
	if c == nil {
		return
	}
	c.tokensUsed.WithLabelValues(model).Add(float64(tokens))
	c.costUSD.WithLabelValues(model).Add(cost)
}
