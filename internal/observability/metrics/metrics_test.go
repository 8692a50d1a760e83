package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func TestChatMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)
	m.ObserveRequest("franz", "ok")
	m.ObserveRequest("franz", "ok")
	m.ObserveRequest("franz", "blocked")
	m.ObserveOffPurpose("reprogramming")
	m.ObserveFlagged("uncertain")
	m.ObserveCompletion("gpt-4o-mini", true, 0.4, 120, 40)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("franz", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.offPurposeTotal.WithLabelValues("reprogramming")))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.llmTokensTotal.WithLabelValues("gpt-4o-mini", "input")))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.llmTokensTotal.WithLabelValues("gpt-4o-mini", "output")))
}

func TestChatMetricsNilSafe(t *testing.T) {
	var m *ChatMetrics
	m.ObserveRequest("franz", "ok")
	m.ObserveOffPurpose("reprogramming")
	m.ObserveFlagged("unknown")
	m.ObserveCompletion("model", false, 0.1, 0, 0)
}

func findFamily(fams []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range fams {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func TestChatMetricsGather(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)
	m.ObserveFlagged("off-topic")
	m.ObserveCompletion("gpt-4o-mini", false, 1.5, 0, 0)

	fams, err := reg.Gather()
	assert.NoError(t, err)

	flagged := findFamily(fams, "workshop_chat_flagged_responses_total")
	if assert.NotNil(t, flagged) {
		assert.Equal(t, dto.MetricType_COUNTER, flagged.GetType())
		assert.Equal(t, 1.0, flagged.GetMetric()[0].GetCounter().GetValue())
	}
	latency := findFamily(fams, "workshop_llm_latency_seconds")
	if assert.NotNil(t, latency) {
		assert.Equal(t, uint64(1), latency.GetMetric()[0].GetHistogram().GetSampleCount())
	}
	assert.Nil(t, findFamily(fams, "workshop_llm_tokens_total"))
}
