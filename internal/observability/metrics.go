package observability

import (
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// Metrics is the process-local registry. Counters cover the pipeline and
// coaching paths; everything is exposed in Prometheus text form on /metrics.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	runTotal    *CounterVec
	runDuration *HistogramVec
	queueDepth  *GaugeVec

	clusterAssign   *CounterVec
	recurrenceLinks *Counter

	evidenceTransitions *CounterVec
	decisions           *CounterVec

	llmRequests *CounterVec
	llmLatency  *HistogramVec

	ruleEvals     *CounterVec
	interventions *CounterVec
	sessionsOpen  *Gauge

	sseClients *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv("METRICS_ENABLED")))
	return v == "1" || v == "true" || v == "yes"
}

// Current returns the registry, nil until Init ran with metrics enabled.
func Current() *Metrics {
	return instance
}

func Init() *Metrics {
	initOnce.Do(func() {
		if !Enabled() {
			return
		}
		instance = &Metrics{
			apiRequests: NewCounterVec("hooklab_api_requests_total", "API requests by method/route/status", []string{"method", "route", "status"}),
			apiLatency:  NewHistogramVec("hooklab_api_latency_seconds", "API request latency", []string{"method", "route"}, nil),
			apiInflight: NewGauge("hooklab_api_inflight", "In-flight API requests"),

			runTotal:    NewCounterVec("hooklab_runs_total", "Pipeline runs by type and terminal status", []string{"run_type", "status"}),
			runDuration: NewHistogramVec("hooklab_run_duration_seconds", "Run wall time by type", []string{"run_type"}, []float64{1, 5, 15, 60, 300, 900, 3600}),
			queueDepth:  NewGaugeVec("hooklab_run_queue_depth", "Runs by status", []string{"status"}),

			clusterAssign:   NewCounterVec("hooklab_cluster_assignments_total", "Cluster assignment outcomes", []string{"result"}),
			recurrenceLinks: NewCounter("hooklab_recurrence_links_total", "Recurrence link observations recorded"),

			evidenceTransitions: NewCounterVec("hooklab_evidence_transitions_total", "Evidence event transitions", []string{"from", "to"}),
			decisions:           NewCounterVec("hooklab_decisions_total", "Decisions by type and method", []string{"decision", "method"}),

			llmRequests: NewCounterVec("hooklab_llm_requests_total", "Vision LLM calls by outcome", []string{"outcome"}),
			llmLatency:  NewHistogramVec("hooklab_llm_latency_seconds", "Vision LLM call latency", []string{}, []float64{0.5, 1, 2, 5, 10, 30, 60}),

			ruleEvals:     NewCounterVec("hooklab_rule_evaluations_total", "Coaching rule checks by result", []string{"result"}),
			interventions: NewCounterVec("hooklab_interventions_total", "Interventions by delivery", []string{"delivered"}),
			sessionsOpen:  NewGauge("hooklab_coaching_sessions_open", "Active coaching sessions"),

			sseClients: NewGauge("hooklab_sse_clients", "Connected SSE clients"),
		}
	})
	return instance
}

func (m *Metrics) ObserveAPI(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(d.Seconds(), method, route)
}

func (m *Metrics) ApiInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) ApiInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) ObserveRun(runType, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.runTotal.Inc(runType, status)
	m.runDuration.Observe(d.Seconds(), runType)
}

func (m *Metrics) SetQueueDepth(status string, n int64) {
	if m != nil {
		m.queueDepth.Set(float64(n), status)
	}
}

func (m *Metrics) ClusterAssigned(result string) {
	if m != nil {
		m.clusterAssign.Inc(result)
	}
}

func (m *Metrics) RecurrenceLinked() {
	if m != nil {
		m.recurrenceLinks.Inc()
	}
}

func (m *Metrics) EvidenceTransition(from, to string) {
	if m != nil {
		m.evidenceTransitions.Inc(from, to)
	}
}

func (m *Metrics) DecisionMade(decision, method string) {
	if m != nil {
		m.decisions.Inc(decision, method)
	}
}

func (m *Metrics) ObserveLLM(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.llmRequests.Inc(outcome)
	m.llmLatency.Observe(d.Seconds())
}

func (m *Metrics) RuleEvaluated(result string) {
	if m != nil {
		m.ruleEvals.Inc(result)
	}
}

func (m *Metrics) InterventionFired(delivered bool) {
	if m == nil {
		return
	}
	if delivered {
		m.interventions.Inc("true")
	} else {
		m.interventions.Inc("false")
	}
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.sessionsOpen.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.sessionsOpen.Dec()
	}
}

func (m *Metrics) SSEClientConnected() {
	if m != nil {
		m.sseClients.Inc()
	}
}

func (m *Metrics) SSEClientDisconnected() {
	if m != nil {
		m.sseClients.Dec()
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		for _, c := range []promWriter{
			m.apiRequests, m.apiLatency, m.apiInflight,
			m.runTotal, m.runDuration, m.queueDepth,
			m.clusterAssign, m.recurrenceLinks,
			m.evidenceTransitions, m.decisions,
			m.llmRequests, m.llmLatency,
			m.ruleEvals, m.interventions, m.sessionsOpen,
			m.sseClients,
		} {
			_ = c.WritePrometheus(w)
		}
	})
}
