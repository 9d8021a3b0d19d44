package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	return NewCollector("chorus_test", prometheus.NewRegistry())
}

func TestNewCollector(t *testing.T) {
	c := newTestCollector(t)
	require.NotNil(t, c)
	assert.NotNil(t, c.httpRequestsTotal)
	assert.NotNil(t, c.httpRequestDuration)
	assert.NotNil(t, c.orchestrationsTotal)
	assert.NotNil(t, c.orchestrationDuration)
	assert.NotNil(t, c.agentCallsTotal)
	assert.NotNil(t, c.tokensUsed)
	assert.NotNil(t, c.costUSD)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	c := newTestCollector(t)

	c.RecordHTTPRequest("POST", "/v1/chat/multi-send", "200", 100*time.Millisecond)
	c.RecordHTTPRequest("POST", "/v1/chat/multi-send", "200", 50*time.Millisecond)

	got := testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("POST", "/v1/chat/multi-send", "200"))
	assert.Equal(t, float64(2), got)
}

func TestCollector_RecordOrchestration(t *testing.T) {
	c := newTestCollector(t)

	c.RecordOrchestration("debate", "ok", 2*time.Second)
	c.RecordOrchestration("debate", "error", time.Second)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.orchestrationsTotal.WithLabelValues("debate", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.orchestrationsTotal.WithLabelValues("debate", "error")))
}

func TestCollector_RecordAgentCall(t *testing.T) {
	c := newTestCollector(t)

	c.RecordAgentCall("gpt4-turbo", "ok")
	c.RecordAgentCall("gpt4-turbo", "ok")
	c.RecordAgentCall("gpt4-turbo", "error")

	assert.Equal(t, float64(2), testutil.ToFloat64(c.agentCallsTotal.WithLabelValues("gpt4-turbo", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.agentCallsTotal.WithLabelValues("gpt4-turbo", "error")))
}

func TestCollector_RecordUsage(t *testing.T) {
	c := newTestCollector(t)

	c.RecordUsage("gpt-4-turbo", 120, 0.12)
	c.RecordUsage("gpt-4-turbo", 80, 0.08)

	assert.Equal(t, float64(200), testutil.ToFloat64(c.tokensUsed.WithLabelValues("gpt-4-turbo")))
	assert.InDelta(t, 0.20, testutil.ToFloat64(c.costUSD.WithLabelValues("gpt-4-turbo")), 1e-9)
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordHTTPRequest("GET", "/", "200", time.Millisecond)
		c.RecordOrchestration("parallel", "ok", time.Millisecond)
		c.RecordAgentCall("a", "ok")
		c.RecordUsage("m", 1, 0.01)
	})
}
