// Package metrics holds the Prometheus collectors for the safety engine.
//
// Evaluation collectors are fed by the service layer, store collectors by the
// instrumented and resilient store wrappers, and HTTP collectors by the gin
// middleware in this package. Everything is registered with the default
// registry at init.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxsafety_evaluations_total",
			Help: "Engine evaluations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	EvaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rxsafety_evaluation_duration_seconds",
			Help:    "Engine evaluation latency",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	InteractionFindingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxsafety_interaction_findings_total",
			Help: "Interaction findings by severity and source",
		},
		[]string{"severity", "source"},
	)

	AlternativesSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rxsafety_alternatives_skipped_total",
			Help: "Alternative candidates skipped because they could not be evaluated",
		},
	)

	StoreRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxsafety_store_requests_total",
			Help: "Knowledge store queries by store, operation and outcome",
		},
		[]string{"store", "operation", "outcome"},
	)

	StoreRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rxsafety_store_request_duration_seconds",
			Help:    "Knowledge store query latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"store", "operation"},
	)

	StoreBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rxsafety_store_breaker_state",
			Help: "Circuit breaker state per store (0 closed, 1 half-open, 2 open)",
		},
		[]string{"store"},
	)

	StoreHealthy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rxsafety_store_healthy",
			Help: "Result of the last scheduled store health probe (1 healthy)",
		},
		[]string{"store"},
	)

	DatasetReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxsafety_dataset_reloads_total",
			Help: "Dataset hot reloads by outcome",
		},
		[]string{"outcome"},
	)

	DatasetDrugs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rxsafety_dataset_drugs",
			Help: "Drug records in the active in-memory snapshot",
		},
	)

	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxsafety_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rxsafety_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rxsafety_http_requests_in_flight",
			Help: "Current in-flight requests",
		},
	)
)

func init() {
	prometheus.MustRegister(EvaluationsTotal)
	prometheus.MustRegister(EvaluationDuration)
	prometheus.MustRegister(InteractionFindingsTotal)
	prometheus.MustRegister(AlternativesSkippedTotal)
	prometheus.MustRegister(StoreRequestsTotal)
	prometheus.MustRegister(StoreRequestDuration)
	prometheus.MustRegister(StoreBreakerState)
	prometheus.MustRegister(StoreHealthy)
	prometheus.MustRegister(DatasetReloadsTotal)
	prometheus.MustRegister(DatasetDrugs)
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
}

// Outcome labels shared by the counters above.
const (
	OutcomeOK          = "ok"
	OutcomeNotFound    = "not_found"
	OutcomeError       = "error"
	OutcomeUnavailable = "unavailable"
	OutcomeFallback    = "fallback"
)
