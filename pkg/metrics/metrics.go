package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

var (
	RuleExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_rule_executions_total",
			Help: "Total number of automation rule executions (count)",
		},
		[]string{"status"},
	)

	RuleExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "automation_rule_execution_duration_ms",
			Help:    "Rule execution duration in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"status"},
	)

	ActionExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_action_executions_total",
			Help: "Total number of action executions by type (count)",
		},
		[]string{"action_type", "status"},
	)

	TriggeredRulesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_triggered_rules_total",
			Help: "Total number of rules matched per trigger event (count)",
		},
		[]string{"event"},
	)

	ScenesFilteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_scenes_filtered_total",
			Help: "Total number of scenes evaluated by the audio criteria filter (count)",
		},
		[]string{"result"},
	)

	FilterDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "automation_filter_duration_ms",
			Help:    "Audio criteria filter duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	FeedbackRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_feedback_recorded_total",
			Help: "Total number of feedback records accepted by the learner (count)",
		},
		[]string{"action"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_retry_attempts_total",
			Help: "Total number of retry attempts by action type (count)",
		},
		[]string{"action_type"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "automation_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breakers (count)",
		},
		[]string{"name", "state"},
	)

	FeatureCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_feature_cache_hits_total",
			Help: "Audio feature cache lookups by outcome (count)",
		},
		[]string{"outcome"},
	)

	EventsConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_events_consumed_total",
			Help: "Content events consumed from the broker by outcome (count)",
		},
		[]string{"topic", "outcome"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_dlq_messages_total",
			Help: "Messages routed to the dead letter queue (count)",
		},
		[]string{"topic"},
	)
)

func RegisterEngineMetrics() {
	prometheus.MustRegister(
		RuleExecutionsTotal,
		RuleExecutionDuration,
		ActionExecutionsTotal,
		TriggeredRulesTotal,
	)
}

func RegisterFilterMetrics() {
	prometheus.MustRegister(
		ScenesFilteredTotal,
		FilterDuration,
		FeedbackRecordedTotal,
		FeatureCacheHitsTotal,
	)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(
		EventsConsumedTotal,
		DLQMessagesTotal,
	)
}

func RegisterResilienceMetrics() {
	prometheus.MustRegister(
		RetryAttemptsTotal,
		CircuitBreakerState,
		CircuitBreakerRequests,
	)
}

func ObserveRuleExecution(duration time.Duration, status string) {
	RuleExecutionsTotal.WithLabelValues(status).Inc()
	RuleExecutionDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func SetCircuitBreakerState(name string, state gobreaker.State) {
	var stateValue float64
	switch state {
	case gobreaker.StateClosed:
		stateValue = 0
	case gobreaker.StateHalfOpen:
		stateValue = 1
	case gobreaker.StateOpen:
		stateValue = 2
	}
	CircuitBreakerState.WithLabelValues(name).Set(stateValue)
}
