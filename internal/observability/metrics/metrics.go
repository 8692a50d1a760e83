package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the chat pipeline.
type ChatMetrics struct {
	requestsTotal   *prometheus.CounterVec
	offPurposeTotal *prometheus.CounterVec
	flaggedTotal    *prometheus.CounterVec
	llmLatency      *prometheus.HistogramVec
	llmTokensTotal  *prometheus.CounterVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workshop",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Chat requests by persona and outcome",
		}, []string{"persona", "outcome"}),
		offPurposeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workshop",
			Subsystem: "chat",
			Name:      "off_purpose_total",
			Help:      "Messages refused before the completion call",
		}, []string{"category"}),
		flaggedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workshop",
			Subsystem: "chat",
			Name:      "flagged_responses_total",
			Help:      "Responses queued for operator review",
		}, []string{"type"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workshop",
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "Latency of completion calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"model", "status"}),
		llmTokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workshop",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens consumed by completion calls",
		}, []string{"model", "direction"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.offPurposeTotal, m.flaggedTotal, m.llmLatency, m.llmTokensTotal)
	return m
}

func (m *ChatMetrics) ObserveRequest(persona, outcome string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(persona, outcome).Inc()
}

func (m *ChatMetrics) ObserveOffPurpose(category string) {
	if m == nil {
		return
	}
	m.offPurposeTotal.WithLabelValues(category).Inc()
}

func (m *ChatMetrics) ObserveFlagged(kind string) {
	if m == nil {
		return
	}
	m.flaggedTotal.WithLabelValues(kind).Inc()
}

func (m *ChatMetrics) ObserveCompletion(model string, ok bool, seconds float64, inputTokens, outputTokens int32) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.llmLatency.WithLabelValues(model, status).Observe(seconds)
	if inputTokens > 0 {
		m.llmTokensTotal.WithLabelValues(model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.llmTokensTotal.WithLabelValues(model, "output").Add(float64(outputTokens))
	}
}
